package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/sandbox"
)

func codeSandbox(t *testing.T, handler http.HandlerFunc) *sandbox.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return sandbox.NewClient(srv.URL, srv.Client())
}

func TestAssistFirstAttemptSucceeds(t *testing.T) {
	sb := codeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		var req sandbox.ExecuteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 10, req.Timeout)
		json.NewEncoder(w).Encode(sandbox.ExecuteResult{Status: "success", Result: "3628800\n"})
	})

	chatter := &fakeChatter{chatFunc: func(_ context.Context, messages []llm.Message, opts llm.Options) (string, error) {
		assert.Contains(t, messages[0].Content, "code generation assistant")
		assert.Equal(t, 1000, opts.MaxTokens)
		assert.Equal(t, 0.2, opts.Temperature)
		return "```python\ndef factorial(n):\n    return 1 if n <= 1 else n * factorial(n - 1)\nprint(factorial(10))\n```\nRecursive factorial with a demo call.", nil
	}}

	result := NewCodeAssistant(chatter, sb).Assist(context.Background(), "factorial of 10", 0, 0)

	require.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Code, "def factorial(n):")
	assert.Equal(t, "Recursive factorial with a demo call.", result.Explanation)
	assert.Equal(t, "3628800\n", result.TestOutput)
}

func TestAssistRetriesWithErrorFeedback(t *testing.T) {
	executions := 0
	sb := codeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		executions++
		if executions == 1 {
			json.NewEncoder(w).Encode(sandbox.ExecuteResult{Status: "error", Error: "NameError: name 'n' is not defined"})
			return
		}
		json.NewEncoder(w).Encode(sandbox.ExecuteResult{Status: "success", Result: "ok\n"})
	})

	generations := 0
	chatter := &fakeChatter{chatFunc: func(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
		generations++
		if generations == 2 {
			assert.Contains(t, messages[0].Content, "debugging assistant")
			assert.Contains(t, messages[1].Content, "Previous Error:\nNameError: name 'n' is not defined")
		}
		return "```python\nprint('ok')\n```\nfixed", nil
	}}

	result := NewCodeAssistant(chatter, sb).Assist(context.Background(), "task", 3, 10)

	require.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, generations)
}

func TestAssistExhaustsAttempts(t *testing.T) {
	sb := codeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sandbox.ExecuteResult{Status: "error", Error: "always broken"})
	})
	chatter := &fakeChatter{chatFunc: func(context.Context, []llm.Message, llm.Options) (string, error) {
		return "```python\nboom\n```\ntried", nil
	}}

	result := NewCodeAssistant(chatter, sb).Assist(context.Background(), "task", 2, 5)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "always broken", result.Error)
	assert.Contains(t, result.Code, "boom")
}

func TestAssistBlockedImportNeverReachesSandbox(t *testing.T) {
	sb := codeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("sandbox must not be reached for code with blocked imports")
	})

	generations := 0
	chatter := &fakeChatter{chatFunc: func(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
		generations++
		if generations == 2 {
			assert.Contains(t, messages[1].Content, "Validation Error: Blocked imports detected: os")
		}
		return "```python\nimport os\nprint(os.listdir('/'))\n```\nlists the root", nil
	}}

	result := NewCodeAssistant(chatter, sb).Assist(context.Background(), "list files", 2, 5)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Contains(t, result.Error, "Validation Error: Blocked imports detected: os")
}

func TestAssistGenerationFailure(t *testing.T) {
	sb := codeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("sandbox must not be reached when generation fails")
	})
	chatter := &fakeChatter{chatFunc: func(context.Context, []llm.Message, llm.Options) (string, error) {
		return "", errors.New("engine down")
	}}

	result := NewCodeAssistant(chatter, sb).Assist(context.Background(), "task", 3, 10)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Error, "Code generation error")
}

func TestSplitCodeResponse(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		code        string
		explanation string
	}{
		{
			"fenced block with trailing explanation",
			"```python\nprint(1)\n```\nPrints one.",
			"print(1)",
			"Prints one.",
		},
		{
			"fenced block without explanation",
			"```python\nprint(1)\n```",
			"print(1)",
			"Code generated successfully",
		},
		{
			"explanation marker",
			"print(1)\n\nExplanation: it prints one",
			"print(1)",
			"it prints one",
		},
		{
			"bare code fallback",
			"print(1)",
			"print(1)",
			"Code generated (no explicit explanation provided)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, explanation := splitCodeResponse(tt.in)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.explanation, explanation)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, clamp(0, 1, 5, 3))
	assert.Equal(t, 3, clamp(-1, 1, 5, 3))
	assert.Equal(t, 5, clamp(9, 1, 5, 3))
	assert.Equal(t, 2, clamp(2, 1, 5, 3))
}
