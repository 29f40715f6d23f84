package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/agent"
	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/models"
)

// scriptedChatter returns canned chat completions in order, repeating the last.
type scriptedChatter struct {
	responses []string
	calls     int
}

func (s *scriptedChatter) Chat(_ context.Context, _ []llm.Message, _ llm.Options) (string, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

// memorySearcherFunc adapts a function to the tools.MemorySearcher shape.
type memorySearcherFunc func(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error)

func (f memorySearcherFunc) Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error) {
	return f(ctx, query, topK, sessionID)
}

func TestResearchHandler(t *testing.T) {
	s := newTestServer(t)
	memory := memorySearcherFunc(func(_ context.Context, query string, topK int, _ string) ([]models.Memory, error) {
		assert.Equal(t, "black holes", query)
		assert.Equal(t, 3, topK)
		return []models.Memory{{Message: "black holes bend light", Score: 0.2}}, nil
	})
	s.SetAgents(nil, agent.NewResearcher(
		&scriptedChatter{responses: []string{"They bend light [Source 1]."}}, nil, memory), nil)
	s.engineTag = "fast/test-model"

	var resp researchResponse
	rec := doJSON(t, s, http.MethodPost, "/research", map[string]string{"question": "black holes"}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "black holes", resp.Question)
	assert.True(t, resp.Success)
	assert.Equal(t, "They bend light [Source 1].", resp.Answer)
	assert.Equal(t, 1, resp.MemoriesConsulted)
	assert.Equal(t, "fast/test-model", resp.Engine)
}

func TestResearchHandlerValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/research", map[string]string{"question": " "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Question cannot be empty", errDetail(t, rec))

	rec = doJSON(t, s, http.MethodPost, "/research", map[string]string{"question": "why?"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestResearchMultiHandler(t *testing.T) {
	s := newTestServer(t)
	s.SetAgents(nil, agent.NewResearcher(
		&scriptedChatter{responses: []string{"finding", "finding", "combined summary"}}, nil, nil), nil)

	var resp agent.MultiResearchResult
	rec := doJSON(t, s, http.MethodPost, "/research/multi",
		map[string][]string{"questions": {"q1", "q2"}}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Questions)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "combined summary", resp.Synthesis)
}

func TestResearchMultiHandlerValidation(t *testing.T) {
	s := newTestServer(t)
	s.SetAgents(nil, agent.NewResearcher(&scriptedChatter{responses: []string{"x"}}, nil, nil), nil)

	rec := doJSON(t, s, http.MethodPost, "/research/multi", map[string][]string{"questions": {}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Questions list cannot be empty", errDetail(t, rec))

	questions := make([]string, 11)
	for i := range questions {
		questions[i] = "q"
	}
	rec = doJSON(t, s, http.MethodPost, "/research/multi", map[string][]string{"questions": questions}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Too many questions (11). Maximum 10.", errDetail(t, rec))
}
