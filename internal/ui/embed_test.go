package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	h, err := Handler()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestHandler_Index(t *testing.T) {
	w := serve(t, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Chronoflow</title>")
}

func TestHandler_Asset(t *testing.T) {
	w := serve(t, "/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1")
}

func TestHandler_SPAFallback(t *testing.T) {
	w := serve(t, "/cards/abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Chronoflow</title>")
}

func TestHandler_MissingAsset(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, serve(t, "/missing.js").Code)
}

func TestHandler_APIPathNotMasked(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, serve(t, "/api/v2/board").Code)
}
