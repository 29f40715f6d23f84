// Package library is the HTTP client for the document librarian's search
// API. The librarian ingests documents out of process; this service only
// reads its chunks.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/archive-ai/brain/pkg/version"
)

// Chunk is one indexed document fragment returned by a library search.
type Chunk struct {
	Filename      string  `json:"filename"`
	ChunkIndex    int     `json:"chunk_index"`
	TotalChunks   int     `json:"total_chunks"`
	Text          string  `json:"text"`
	SimilarityPct float64 `json:"similarity_pct"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Chunks []Chunk `json:"chunks"`
}

// Stats summarizes the librarian's holdings.
type Stats struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
}

// Client talks to the librarian service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a library client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Search returns up to topK chunks relevant to query.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Chunk, error) {
	if topK <= 0 {
		topK = 5
	}
	if topK > 10 {
		topK = 10
	}
	payload, err := json.Marshal(searchRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("failed to encode library search: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/library/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read library response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("library search failed (HTTP %d)", resp.StatusCode)
	}
	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode library response: %w", err)
	}
	return out.Chunks, nil
}

// GetStats returns the librarian's document and chunk counts.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/library/stats", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.Full())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("library stats failed (HTTP %d)", resp.StatusCode)
	}
	var out Stats
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode library stats: %w", err)
	}
	return &out, nil
}

// Health probes the librarian's /health endpoint.
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
		return fmt.Errorf("library returned HTTP %d", resp.StatusCode)
	}
	return nil
}
