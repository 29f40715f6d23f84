// Package embed turns text into fixed-dimension vectors via an
// OpenAI-compatible embeddings endpoint.
package embed

import "context"

// Embedder produces fixed-dimension embedding vectors for text.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dim returns the vector dimension every Embed result has.
	Dim() int
}
