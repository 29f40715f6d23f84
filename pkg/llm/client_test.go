package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientChat(t *testing.T) {
	var gotPath string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		resp := apiResponse{Choices: []choice{{Message: &Message{Role: "assistant", Content: "hello there"}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	text, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, Options{MaxTokens: 64, Temperature: 0.7})

	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "test-model", gotBody.Model)
	assert.Len(t, gotBody.Messages, 2)
	assert.Equal(t, 64, gotBody.MaxTokens)
	assert.Equal(t, 0.7, gotBody.Temperature)
}

func TestClientComplete(t *testing.T) {
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(apiResponse{Choices: []choice{{Text: "Thought: done"}}})
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	text, err := c.Complete(context.Background(), "Question: hi\nThought:", Options{
		MaxTokens:   256,
		Temperature: 0.7,
		Stop:        []string{"Observation:"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Thought: done", text)
	assert.Equal(t, []string{"Observation:"}, gotBody.Stop)
}

func TestClientMeanLogprob(t *testing.T) {
	lp := func(v float64) *float64 { return &v }
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.MaxTokens)
		assert.Equal(t, 1, req.Logprobs)
		assert.True(t, req.Echo)
		json.NewEncoder(w).Encode(apiResponse{Choices: []choice{{
			Text: req.Prompt,
			Logprobs: &logprobData{
				Tokens:        []string{"the", "quick", "fox"},
				TokenLogprobs: []*float64{nil, lp(-1.0), lp(-3.0)},
			},
		}}})
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	mean, err := c.MeanLogprob(context.Background(), "the quick fox")

	require.NoError(t, err)
	assert.InDelta(t, -2.0, mean, 1e-9)
}

func TestClientMeanLogprobNoUsableTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Choices: []choice{{
			Logprobs: &logprobData{Tokens: []string{"x"}, TokenLogprobs: []*float64{nil}},
		}}})
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	mean, err := c.MeanLogprob(context.Background(), "x")

	require.NoError(t, err)
	assert.Zero(t, mean)
}

func TestPerplexity(t *testing.T) {
	assert.InDelta(t, 1.0, Perplexity(0), 1e-9)
	assert.InDelta(t, 7.389056, Perplexity(-2), 1e-5)
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}

func TestClientErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Message: "model not loaded"}})
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	_, err := c.Complete(context.Background(), "hi", Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("fast", srv.URL, "test-model", srv.Client())
	assert.NoError(t, c.Health(context.Background()))

	srv.Close()
	assert.Error(t, c.Health(context.Background()))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &HTTPError{Status: 429}, true},
		{"service unavailable", &HTTPError{Status: 503}, true},
		{"bad gateway", &HTTPError{Status: 502}, true},
		{"bad request", &HTTPError{Status: 400}, false},
		{"not found", &HTTPError{Status: 404}, false},
		{"transport", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"decode", errors.New("failed to decode engine response"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
