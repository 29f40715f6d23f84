package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
)

// scriptedCompleter returns canned completions in order, repeating the last.
type scriptedCompleter struct {
	responses []string
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ string, _ llm.Options) (string, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func TestChatHandler(t *testing.T) {
	s := newTestServer(t)
	s.chat = &fakeChat{fn: func(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
		assert.Equal(t, "hello", req.Message)
		return &models.ChatResponse{
			Response:   "hi!",
			Engine:     "fast",
			Intent:     "chat",
			Confidence: 0.8,
		}, nil
	}}

	var resp models.ChatResponse
	rec := doJSON(t, s, http.MethodPost, "/chat", map[string]string{"message": "hello"}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi!", resp.Response)
	assert.Equal(t, "chat", resp.Intent)
}

func TestChatHandlerEmptyMessage(t *testing.T) {
	s := newTestServer(t)
	s.chat = &fakeChat{fn: func(_ context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
		return nil, services.NewValidationError("message", "Message cannot be empty")
	}}

	rec := doJSON(t, s, http.MethodPost, "/chat", map[string]string{"message": ""}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message cannot be empty", errDetail(t, rec))
}

func TestVerifyHandler(t *testing.T) {
	s := newTestServer(t)
	s.completer = &scriptedCompleter{responses: []string{
		"Paris is the capital.",       // draft
		"1. Is Paris the capital?",    // plan
		"Yes, Paris is the capital.",  // answer
		"Paris is the capital of France.", // revision
	}}
	s.engineTag = "fast/test-model"

	var resp struct {
		InitialResponse string `json:"initial_response"`
		FinalResponse   string `json:"final_response"`
		Revised         bool   `json:"revised"`
		Engine          string `json:"engine"`
	}
	rec := doJSON(t, s, http.MethodPost, "/verify", map[string]string{"message": "What is the capital of France?"}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Paris is the capital.", resp.InitialResponse)
	assert.Equal(t, "Paris is the capital of France.", resp.FinalResponse)
	assert.True(t, resp.Revised)
	assert.Equal(t, "fast/test-model", resp.Engine)
}

func TestVerifyHandlerEmptyMessage(t *testing.T) {
	s := newTestServer(t)
	s.completer = &scriptedCompleter{responses: []string{"unused"}}

	rec := doJSON(t, s, http.MethodPost, "/verify", map[string]string{"message": "   "}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message cannot be empty", errDetail(t, rec))
}

func TestVerifyHandlerNotConfigured(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/verify", map[string]string{"message": "check this"}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(errDetail(t, rec), "not available"))
}
