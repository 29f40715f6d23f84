package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed-model", req.Model)
		require.Len(t, req.Input, 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-embed-model", 3, srv.Client())
	vec, err := e.Embed(context.Background(), "hello world")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, e.Dim())
}

func TestHTTPEmbedderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2}, "index": 0}},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "m", 384, srv.Client())
	_, err := e.Embed(context.Background(), "hello")

	assert.ErrorContains(t, err, "expected 384")
}

func TestHTTPEmbedderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "m", 3, srv.Client())
	_, err := e.Embed(context.Background(), "hello")

	assert.ErrorContains(t, err, "HTTP 503")
}

func TestFakeDeterminism(t *testing.T) {
	f := NewFake(384)

	a1, err := f.Embed(context.Background(), "the same text")
	require.NoError(t, err)
	a2, err := f.Embed(context.Background(), "the same text")
	require.NoError(t, err)
	b, err := f.Embed(context.Background(), "different text")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.Len(t, a1, 384)

	// unit norm
	var norm float64
	for _, v := range a1 {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}
