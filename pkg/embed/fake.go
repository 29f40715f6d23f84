package embed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// Fake is a deterministic in-process Embedder for tests: identical text
// yields an identical unit vector, different text almost surely does not.
type Fake struct {
	Dimension int
	// Err, when set, is returned by every Embed call.
	Err error
}

// NewFake returns a deterministic embedder with the given dimension.
func NewFake(dim int) *Fake {
	return &Fake{Dimension: dim}
}

// Dim returns the configured dimension.
func (f *Fake) Dim() int { return f.Dimension }

// Embed returns a unit vector seeded from a hash of text.
func (f *Fake) Embed(_ context.Context, text string) ([]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, f.Dimension)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
