package stubapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/estatehub/seeder/internal/models"
	"github.com/estatehub/seeder/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	router, err := NewRouter(st, opts, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postFile(t *testing.T, url, field string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "img.jpg")
	require.NoError(t, err)
	_, _ = part.Write(data)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createOwner(t *testing.T, base string) int64 {
	t.Helper()
	resp := postJSON(t, base+"/owners", `{"name":"Ana Diaz","address":"1 Main St"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var o models.Owner
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	return o.ID
}

func TestOwnerFlow(t *testing.T) {
	srv, st := newTestServer(t, Options{})

	id := createOwner(t, srv.URL)
	assert.Equal(t, int64(1), id)

	resp := postFile(t, fmt.Sprintf("%s/owners/%d/photo", srv.URL, id), "file", []byte("jpeg"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	owner, err := st.GetOwner(t.Context(), id)
	require.NoError(t, err)
	require.NotNil(t, owner.Photo)
	assert.Equal(t, int64(4), owner.Photo.Size)

	resp, err = http.Get(fmt.Sprintf("%s/owners/%d", srv.URL, id))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOwnerValidation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"missing address", `{"name":"Ana"}`},
		{"empty name", `{"name":"","address":"x"}`},
		{"not json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/owners", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPropertyFlow(t *testing.T) {
	srv, st := newTestServer(t, Options{})
	ownerID := createOwner(t, srv.URL)

	body := fmt.Sprintf(`{"name":"Diaz Villa","address":"2 Side St","price":250000,"codeInternal":"PROP-AB12CD34","year":1990,"idOwner":"%d"}`, ownerID)
	resp := postJSON(t, srv.URL+"/properties", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p models.Property
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, ownerID, p.IDOwner)

	for i := 0; i < 2; i++ {
		resp := postFile(t, fmt.Sprintf("%s/properties/%d/images", srv.URL, p.ID), "file", []byte("png"))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	counts, err := st.Counts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Owners: 1, Properties: 1, Images: 2}, counts)
}

func TestPropertyRejections(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	ownerID := createOwner(t, srv.URL)

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"unknown owner", `{"name":"x","address":"y","price":1,"codeInternal":"PROP-AAAAAAAA","year":2000,"idOwner":99}`, http.StatusUnprocessableEntity},
		{"zero price", fmt.Sprintf(`{"name":"x","address":"y","price":0,"codeInternal":"PROP-AAAAAAAA","year":2000,"idOwner":%d}`, ownerID), http.StatusBadRequest},
		{"future year", fmt.Sprintf(`{"name":"x","address":"y","price":5,"codeInternal":"PROP-AAAAAAAA","year":3000,"idOwner":%d}`, ownerID), http.StatusBadRequest},
		{"missing owner", `{"name":"x","address":"y","price":5,"codeInternal":"PROP-AAAAAAAA","year":2000}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/properties", tt.body)
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}

func TestUploadRejections(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	ownerID := createOwner(t, srv.URL)

	resp := postFile(t, fmt.Sprintf("%s/owners/%d/photo", srv.URL, ownerID), "other", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postFile(t, fmt.Sprintf("%s/owners/%d/photo", srv.URL, ownerID), "file", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postFile(t, srv.URL+"/owners/42/photo", "file", []byte("x"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postFile(t, srv.URL+"/properties/42/images", "file", []byte("x"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFailOwnerEvery(t *testing.T) {
	srv, _ := newTestServer(t, Options{FailOwnerEvery: 2})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp := postJSON(t, srv.URL+"/owners", `{"name":"a","address":"b"}`)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{201, 500, 201, 500}, statuses)
}

func TestHealthcheck(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
