package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/agent"
	"github.com/archive-ai/brain/pkg/sandbox"
)

func TestAgentHandler(t *testing.T) {
	s := newTestServer(t)
	s.completer = &scriptedCompleter{responses: []string{
		"Thought: Simple arithmetic.\nAction: Calculator\nAction Input: 2 + 2",
		"Thought: Done.\nAction: Final Answer\nAction Input: The answer is 4.",
	}}
	s.engineTag = "fast/test-model"

	var resp struct {
		Answer     string `json:"answer"`
		TotalSteps int    `json:"total_steps"`
		Success    bool   `json:"success"`
		Engine     string `json:"engine"`
	}
	rec := doJSON(t, s, http.MethodPost, "/agent", map[string]string{"question": "What is 2 + 2?"}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The answer is 4.", resp.Answer)
	assert.Equal(t, 2, resp.TotalSteps)
	assert.True(t, resp.Success)
	assert.Equal(t, "fast/test-model", resp.Engine)
}

func TestAgentHandlerEmptyQuestion(t *testing.T) {
	s := newTestServer(t)
	s.completer = &scriptedCompleter{responses: []string{"unused"}}

	rec := doJSON(t, s, http.MethodPost, "/agent", map[string]string{"question": " "}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Question cannot be empty", errDetail(t, rec))
}

func TestAgentHandlerMaxStepsOverride(t *testing.T) {
	s := newTestServer(t)
	// Never reaches a final answer; the run must stop at the override.
	s.completer = &scriptedCompleter{responses: []string{
		"Thought: Still thinking.\nAction: Calculator\nAction Input: 1 + 1",
	}}

	var resp struct {
		TotalSteps int    `json:"total_steps"`
		Error      string `json:"error"`
	}
	rec := doJSON(t, s, http.MethodPost, "/agent",
		map[string]any{"question": "loop forever", "max_steps": 2}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.TotalSteps)
	assert.Equal(t, "Maximum steps (2) reached", resp.Error)
}

func TestAgentRecursiveHandlerValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/agent/recursive",
		map[string]string{"question": "", "corpus": "text"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Question cannot be empty", errDetail(t, rec))

	rec = doJSON(t, s, http.MethodPost, "/agent/recursive",
		map[string]string{"question": "what?", "corpus": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Corpus cannot be empty", errDetail(t, rec))

	rec = doJSON(t, s, http.MethodPost, "/agent/recursive",
		map[string]string{"question": "what?", "corpus": "text"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAgentRecursiveHandler(t *testing.T) {
	sandboxSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sandbox.ExecuteResult{Status: "success", Result: "7"})
	}))
	defer sandboxSrv.Close()

	s := newTestServer(t)
	completer := &scriptedCompleter{responses: []string{
		"Thought: Count the lines.\nAction: CodeExecution\nAction Input: print(7)",
		"Thought: Done.\nAction: Final Answer\nAction Input: There are 7 lines.",
	}}
	callbacks := sandbox.NewCallbackRegistry(0)
	s.recursive = agent.NewRecursive(completer,
		sandbox.NewClient(sandboxSrv.URL, sandboxSrv.Client()), callbacks, "http://localhost:8000")
	s.engineTag = "fast/test-model"

	var resp struct {
		Answer      string `json:"answer"`
		Success     bool   `json:"success"`
		NestedCalls int    `json:"nested_calls"`
	}
	rec := doJSON(t, s, http.MethodPost, "/agent/recursive",
		map[string]string{"question": "How many lines?", "corpus": "a\nb\nc"}, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "There are 7 lines.", resp.Answer)
	assert.True(t, resp.Success)
	assert.Zero(t, resp.NestedCalls)
}

func TestCodeAssistHandlerValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		body    map[string]any
		wantMsg string
	}{
		{"empty task", map[string]any{"task": "  "}, "Task cannot be empty"},
		{"attempts too high", map[string]any{"task": "x", "max_attempts": 6}, "max_attempts must be between 1 and 5"},
		{"timeout too high", map[string]any{"task": "x", "timeout": 31}, "timeout must be between 1 and 30 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/code_assist", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, errDetail(t, rec))
		})
	}
}
