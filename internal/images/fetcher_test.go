package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	res, err := NewFetcher(time.Second, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), res.Data)
	assert.Equal(t, ".png", res.Extension())
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second, nil).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, EmptyBuffer, fe.Kind)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(time.Second, nil).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FetchStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.False(t, IsTimeout(err))
}

func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestFetchTimeout(t *testing.T) {
	srv := hangingServer(t)
	timeout := 200 * time.Millisecond

	start := time.Now()
	_, err := NewFetcher(timeout, nil).Fetch(context.Background(), srv.URL)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.LessOrEqual(t, elapsed, timeout+50*time.Millisecond)
}

func TestFetchDefaultTimeoutBound(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full default timeout")
	}
	srv := hangingServer(t)

	start := time.Now()
	_, err := NewFetcher(0, nil).Fetch(context.Background(), srv.URL)
	elapsed := time.Since(start)

	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, elapsed, DefaultFetchTimeout)
	assert.LessOrEqual(t, elapsed, DefaultFetchTimeout+50*time.Millisecond)
}

func TestExtension(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png; charset=binary", ".png"},
		{"image/webp", ".webp"},
		{"", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			r := &Resource{ContentType: tt.contentType}
			assert.Equal(t, tt.expected, r.Extension())
		})
	}
}
