// Package sandbox is the HTTP client for the isolated code-execution service
// plus the callback registry that lets sandboxed code ask the LLM questions.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/archive-ai/brain/pkg/version"
)

// ExecuteRequest is the wire body for POST /execute.
type ExecuteRequest struct {
	Code string `json:"code"`
	// Context carries variables injected into the sandbox namespace
	// (the recursive agent ships the corpus as CORPUS).
	Context map[string]string `json:"context,omitempty"`
	// Timeout bounds execution inside the sandbox, in seconds.
	Timeout int `json:"timeout,omitempty"`
	// ExecutionID and CallbackURL enable the sandbox's ask_llm helper:
	// it POSTs {execution_id, prompt} back to CallbackURL.
	ExecutionID string `json:"execution_id,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// ExecuteResult is the sandbox's response: Status is "success" or "error",
// Result holds captured stdout, Error the failure description.
type ExecuteResult struct {
	Status string `json:"status"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

// Client talks to the code-execution sandbox.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a sandbox client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the sandbox base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Execute runs code in the sandbox and returns the raw result.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read sandbox response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	var out ExecuteResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox response: %w", err)
	}
	return &out, nil
}

// ExecuteObservation runs code and formats any transport failure into the
// observation string an agent can act on. A non-empty string means the
// sandbox could not be reached or answered with an error status.
func (c *Client) ExecuteObservation(ctx context.Context, req ExecuteRequest) (*ExecuteResult, string) {
	result, err := c.Execute(ctx, req)
	if err == nil {
		return result, ""
	}
	return nil, c.describeError(err)
}

// describeError turns a transport error into the agent-facing string.
func (c *Client) describeError(err error) string {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return "Sandbox Error: Request timed out after 60 seconds. Try processing smaller chunks or simplifying the code."
	}
	var he *httpError
	if errors.As(err, &he) {
		return fmt.Sprintf("Sandbox Error: HTTP %d - %s", he.status, he.body)
	}
	if isConnectionError(err) {
		return fmt.Sprintf("Sandbox Error: Cannot connect to sandbox at %s. Is the service running?", c.baseURL)
	}
	return fmt.Sprintf("Sandbox Error: Unexpected error - %v", err)
}

// Health probes the sandbox's /health endpoint.
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
		return fmt.Errorf("sandbox returned HTTP %d", resp.StatusCode)
	}
	return nil
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("sandbox returned HTTP %d: %s", e.status, e.body)
}

// isConnectionError reports whether err looks like a failure to reach the
// sandbox rather than a failure inside it.
func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset")
}
