package models

// ChatRequest contains fields for a routed chat turn.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Engine    string `json:"engine,omitempty"`
	History   string `json:"history,omitempty"`
}

// ChatResponse is the routed chat result. Engine records which engine
// actually answered (e.g. "fast" or "deep-fallback").
type ChatResponse struct {
	Response   string  `json:"response"`
	Engine     string  `json:"engine"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}
