package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVector(t *testing.T) {
	vec := []float32{0.25, -1.5, 0, 3.14159, -0.000001}

	buf := encodeVector(vec)
	assert.Len(t, buf, 4*len(vec))

	// Hash fields round-trip through map[string]string.
	got := decodeVector([]byte(string(buf)))
	assert.Equal(t, vec, got)
}

func TestEscapeTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "default", "default"},
		{"hyphenated", "session-abc-123", `session\-abc\-123`},
		{"spaces and dots", "a b.c", `a\ b\.c`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeTag(tt.in))
		})
	}
}

func TestKeyMillis(t *testing.T) {
	s := NewStore(nil, nil, "memory_index", "memory:")

	assert.Equal(t, int64(1700000000123), s.keyMillis("memory:1700000000123"))
	// The worker's cursor key lives under the same prefix but is not a memory.
	assert.Equal(t, int64(-1), s.keyMillis("memory:last_id"))
	assert.Equal(t, int64(-1), s.keyMillis("memory:"))
	assert.Equal(t, int64(-1), s.keyMillis("other:123"))
}

func TestNextKeyMonotonic(t *testing.T) {
	s := NewStore(nil, nil, "memory_index", "memory:")

	var prev int64
	for i := 0; i < 100; i++ {
		key, ms := s.nextKey()
		assert.Greater(t, ms, prev)
		assert.Equal(t, "memory:", key[:7])
		prev = ms
	}
}

func TestNormalizeID(t *testing.T) {
	s := NewStore(nil, nil, "memory_index", "memory:")

	assert.Equal(t, "memory:123", s.normalizeID("123"))
	assert.Equal(t, "memory:123", s.normalizeID("memory:123"))
}

func TestParseMemory(t *testing.T) {
	m := parseMemory("memory:1700000000123", map[string]string{
		"message":        "the sky is blue",
		"perplexity":     "42.5",
		"surprise_score": "0.81",
		"timestamp":      "1700000000.123",
		"session_id":     "default",
		"metadata":       `{"entry_id":"1-0"}`,
		"embedding":      "\x00\x01binary noise",
	})

	require.Equal(t, "memory:1700000000123", m.ID)
	assert.Equal(t, "the sky is blue", m.Message)
	assert.Equal(t, 42.5, m.Perplexity)
	assert.Equal(t, 0.81, m.SurpriseScore)
	assert.Equal(t, 1700000000.123, m.Timestamp)
	assert.Equal(t, "default", m.SessionID)
	assert.Equal(t, `{"entry_id":"1-0"}`, m.Metadata)
}
