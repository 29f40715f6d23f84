// Package llm provides HTTP clients for OpenAI-compatible inference engines
// and the fast/deep engine pair with fallback.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/archive-ai/brain/pkg/version"
)

// ErrUnavailable is returned when every configured engine failed to serve
// a request.
var ErrUnavailable = errors.New("all engines unavailable")

// HTTPError is a non-2xx response from an engine.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("engine returned HTTP %d: %s", e.Status, e.Body)
}

// Client talks to one OpenAI-compatible engine.
type Client struct {
	name       string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates an engine client. name is the engine's logical name
// ("fast", "deep") used in logs and response tags.
func NewClient(name, baseURL, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

// Name returns the engine's logical name.
func (c *Client) Name() string { return c.name }

// Model returns the model identifier requests are issued against.
func (c *Client) Model() string { return c.model }

// Complete issues a text completion and returns the first choice's text.
// Transient failures (429/5xx, transport errors) are retried with backoff.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	req := completionRequest{
		Model:       c.model,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.Stop,
	}
	return retryCall(ctx, c.name, func() (string, error) {
		var resp apiResponse
		if err := c.post(ctx, "/v1/completions", req, &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("engine %s returned no choices", c.name)
		}
		return resp.Choices[0].Text, nil
	})
}

// Chat issues a chat completion and returns the first choice's message content.
// Transient failures (429/5xx, transport errors) are retried with backoff.
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.Stop,
	}
	return retryCall(ctx, c.name, func() (string, error) {
		var resp apiResponse
		if err := c.post(ctx, "/v1/chat/completions", req, &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
			return "", fmt.Errorf("engine %s returned no choices", c.name)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// MeanLogprob scores text with an echo-mode completion (max_tokens=1,
// logprobs=1, echo=true) and returns the mean of the available token
// logprobs. Texts with no scorable tokens yield 0 without error.
// Single-shot: callers poll continuously, so there is no retry here.
func (c *Client) MeanLogprob(ctx context.Context, text string) (float64, error) {
	req := completionRequest{
		Model:     c.model,
		Prompt:    text,
		MaxTokens: 1,
		Logprobs:  1,
		Echo:      true,
	}
	var resp apiResponse
	if err := c.post(ctx, "/v1/completions", req, &resp); err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Logprobs == nil {
		return 0, nil
	}
	var sum float64
	var n int
	for _, lp := range resp.Choices[0].Logprobs.TokenLogprobs {
		if lp != nil {
			sum += *lp
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// Perplexity converts a mean logprob into perplexity.
func Perplexity(meanLogprob float64) float64 {
	return math.Exp(-meanLogprob)
}

// Health probes the engine's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.Full())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{Status: resp.StatusCode, Body: resp.Status}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, out *apiResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read engine response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("engine error: %s", out.Error.Message)
	}
	return nil
}
