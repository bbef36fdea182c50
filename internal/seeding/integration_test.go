package seeding_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/estatehub/seeder/internal/backend"
	"github.com/estatehub/seeder/internal/fixtures"
	"github.com/estatehub/seeder/internal/images"
	"github.com/estatehub/seeder/internal/seeding"
	"github.com/estatehub/seeder/internal/store"
	"github.com/estatehub/seeder/internal/stubapi"
	"github.com/estatehub/seeder/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jpegStub is enough for the backend to accept it as an image upload.
var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegStub)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(t *testing.T, opts stubapi.Options) (*seeding.Seeder, store.Store) {
	t.Helper()
	st := store.NewMemory()
	router, err := stubapi.NewRouter(st, opts, nil)
	require.NoError(t, err)
	api := httptest.NewServer(router)
	t.Cleanup(api.Close)

	img := newImageServer(t)

	fetcher := images.NewFetcher(2*time.Second, nil)
	uploader := upload.NewClient(fetcher,
		upload.WithPolicy(upload.DefaultRetryPolicy(img.URL+"/fallback")),
		upload.WithRequestTimeout(5*time.Second))
	be := backend.NewClient(api.URL, 5*time.Second, nil)
	gen := fixtures.New(42, img.URL, img.URL)

	return seeding.New(be, uploader, gen, seeding.Config{Concurrency: 3}, nil), st
}

func TestSeedAgainstStubBackend(t *testing.T) {
	s, st := newPipeline(t, stubapi.Options{})
	ctx := context.Background()

	report := s.Run(ctx, 3)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Count(seeding.Success))
	require.NoError(t, report.Err(true))

	owners, err := st.ListOwners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 3)

	for _, o := range owners {
		require.NotNil(t, o.Photo, "owner %d has no photo", o.ID)
		assert.Equal(t, int64(len(jpegStub)), o.Photo.Size)

		props, err := st.ListProperties(ctx, o.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(props), fixtures.MinProperties)
		assert.LessOrEqual(t, len(props), fixtures.MaxProperties)
		for _, p := range props {
			assert.GreaterOrEqual(t, len(p.Images), fixtures.MinImages)
			assert.LessOrEqual(t, len(p.Images), fixtures.MaxImages)
		}
	}
}

func TestSeedIsolatesFailedOwner(t *testing.T) {
	s, st := newPipeline(t, stubapi.Options{FailOwnerEvery: 2})
	ctx := context.Background()

	report := s.Run(ctx, 3)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 1, report.Count(seeding.Failed))
	assert.Equal(t, 2, report.Count(seeding.Success))
	assert.ErrorIs(t, report.Err(false), seeding.ErrBatchFailed)

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Owners)
	assert.Equal(t, 2, counts.OwnerPhotos)
}
