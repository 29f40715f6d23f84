// Package models contains request/response models and business domain types.
package models

// Memory is a stored conversational memory with its surprise metadata.
// Score is only populated on vector search results (raw cosine distance,
// smaller means closer).
type Memory struct {
	ID            string  `json:"id"`
	Message       string  `json:"message"`
	Perplexity    float64 `json:"perplexity"`
	SurpriseScore float64 `json:"surprise_score"`
	Timestamp     float64 `json:"timestamp"`
	SessionID     string  `json:"session_id"`
	Metadata      string  `json:"metadata,omitempty"`
	Score         float64 `json:"similarity_score,omitempty"`
}

// SearchMemoriesRequest contains fields for a memory vector search.
type SearchMemoriesRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
