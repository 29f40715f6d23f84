package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/config"
	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/personas"
)

// fakeChat is a function-field ChatProcessor.
type fakeChat struct {
	fn func(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

func (f *fakeChat) ProcessChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	return f.fn(ctx, req)
}

// fakeMemoryStore is a function-field MemoryStore. Unset methods return
// zero values.
type fakeMemoryStore struct {
	listFn   func(ctx context.Context, offset, limit int) ([]models.Memory, int64, error)
	searchFn func(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error)
	getFn    func(ctx context.Context, id string) (*models.Memory, error)
	deleteFn func(ctx context.Context, id string) error
	countFn  func(ctx context.Context) (int64, error)
	pingFn   func(ctx context.Context) error
}

func (f *fakeMemoryStore) List(ctx context.Context, offset, limit int) ([]models.Memory, int64, error) {
	if f.listFn == nil {
		return nil, 0, nil
	}
	return f.listFn(ctx, offset, limit)
}

func (f *fakeMemoryStore) Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error) {
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ctx, query, topK, sessionID)
}

func (f *fakeMemoryStore) Get(ctx context.Context, id string) (*models.Memory, error) {
	if f.getFn == nil {
		return nil, nil
	}
	return f.getFn(ctx, id)
}

func (f *fakeMemoryStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeMemoryStore) Count(ctx context.Context) (int64, error) {
	if f.countFn == nil {
		return 0, nil
	}
	return f.countFn(ctx)
}

func (f *fakeMemoryStore) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return nil
	}
	return f.pingFn(ctx)
}

// fakeProber is a fixed-result health probe.
type fakeProber struct {
	err error
}

func (f *fakeProber) Health(context.Context) error { return f.err }

// newTestServer builds a server around fakes; tests adjust fields directly.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	personaStore, err := personas.NewStore(t.TempDir())
	require.NoError(t, err)

	chat := &fakeChat{fn: func(context.Context, models.ChatRequest) (*models.ChatResponse, error) {
		return &models.ChatResponse{Response: "ok"}, nil
	}}
	return NewServer(config.Load(), chat, &fakeMemoryStore{}, personaStore)
}

// doJSON runs a JSON request through the full router and decodes the reply
// into out (when non-nil).
func doJSON(t *testing.T, s *Server, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if out != nil && rec.Code < http.StatusMultipleChoices {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

// errDetail extracts the "detail" field from an error response body.
func errDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}
