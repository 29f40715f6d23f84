// Package memory implements the surprise-gated long-term memory: a Redis
// Stack vector store (hashes + HNSW index) and the stream worker that decides
// which conversation entries are worth keeping.
package memory

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archive-ai/brain/pkg/embed"
	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
)

// searchReturnFields are the hash fields returned by vector searches.
// The embedding itself is never returned.
var searchReturnFields = []string{
	"message", "perplexity", "surprise_score", "timestamp", "session_id",
}

// Store is the Redis Stack vector store for memories. Each memory is a hash
// at <prefix><unix-ms> indexed by an HNSW vector index over its embedding.
type Store struct {
	rdb      *redis.Client
	embedder embed.Embedder
	index    string
	prefix   string

	// Guards key allocation so two stores in the same millisecond
	// cannot collide.
	mu        sync.Mutex
	lastKeyMS int64
}

// NewStore creates a memory store. index and prefix name the RediSearch
// index and the hash key prefix it covers.
func NewStore(rdb *redis.Client, embedder embed.Embedder, index, prefix string) *Store {
	return &Store{
		rdb:      rdb,
		embedder: embedder,
		index:    index,
		prefix:   prefix,
	}
}

// EnsureIndex creates the vector index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	err := s.rdb.FTCreate(ctx, s.index,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{s.prefix},
		},
		&redis.FieldSchema{FieldName: "message", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            s.embedder.Dim(),
					DistanceMetric: "COSINE",
				},
			},
		},
		&redis.FieldSchema{FieldName: "perplexity", FieldType: redis.SearchFieldTypeNumeric, Sortable: true},
		&redis.FieldSchema{FieldName: "surprise_score", FieldType: redis.SearchFieldTypeNumeric, Sortable: true},
		&redis.FieldSchema{FieldName: "timestamp", FieldType: redis.SearchFieldTypeNumeric, Sortable: true},
		&redis.FieldSchema{FieldName: "session_id", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "metadata", FieldType: redis.SearchFieldTypeText},
	).Err()
	if err != nil && !strings.Contains(err.Error(), "Index already exists") {
		return fmt.Errorf("failed to create vector index %s: %w", s.index, err)
	}
	return nil
}

// nextKey allocates a unique millisecond-timestamp key. When two stores land
// in the same millisecond the second gets lastMS+1 rather than overwriting.
func (s *Store) nextKey() (string, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := time.Now().UnixMilli()
	if ms <= s.lastKeyMS {
		ms = s.lastKeyMS + 1
	}
	s.lastKeyMS = ms
	return s.prefix + strconv.FormatInt(ms, 10), ms
}

// Store embeds message and persists it with its surprise metadata.
// Returns the new memory's key.
func (s *Store) Store(ctx context.Context, message string, perplexity, surprise float64, sessionID string, metadata map[string]string) (string, error) {
	if message == "" {
		return "", services.NewValidationError("message", "message cannot be empty")
	}
	vec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to embed message: %w", err)
	}
	if sessionID == "" {
		sessionID = "default"
	}
	meta := "{}"
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("failed to encode metadata: %w", err)
		}
		meta = string(raw)
	}

	key, ms := s.nextKey()
	fields := map[string]interface{}{
		"message":        message,
		"embedding":      encodeVector(vec),
		"perplexity":     perplexity,
		"surprise_score": surprise,
		"timestamp":      float64(ms) / 1000.0,
		"session_id":     sessionID,
		"metadata":       meta,
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return "", fmt.Errorf("failed to store memory: %w", err)
	}
	return key, nil
}

// Search returns the topK nearest memories to query by cosine distance,
// optionally restricted to one session. Score on each result is the raw
// cosine distance (smaller = closer).
func (s *Store) Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	expr := fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", topK)
	if sessionID != "" {
		expr = fmt.Sprintf("(@session_id:{%s})=>[KNN %d @embedding $vec AS score]", escapeTag(sessionID), topK)
	}

	returns := make([]redis.FTSearchReturn, 0, len(searchReturnFields)+1)
	for _, f := range searchReturnFields {
		returns = append(returns, redis.FTSearchReturn{FieldName: f})
	}
	returns = append(returns, redis.FTSearchReturn{FieldName: "score"})

	res, err := s.rdb.FTSearchWithArgs(ctx, s.index, expr, &redis.FTSearchOptions{
		Params:         map[string]interface{}{"vec": encodeVector(vec)},
		Return:         returns,
		SortBy:         []redis.FTSearchSortBy{{FieldName: "score", Asc: true}},
		LimitOffset:    0,
		Limit:          topK,
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	memories := make([]models.Memory, 0, len(res.Docs))
	for _, doc := range res.Docs {
		m := parseMemory(doc.ID, doc.Fields)
		if raw, ok := doc.Fields["score"]; ok {
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				m.Score = score
			}
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// Get returns one memory by ID. The bare millisecond form is accepted and
// normalized to the prefixed key.
func (s *Store) Get(ctx context.Context, id string) (*models.Memory, error) {
	key := s.normalizeID(id)
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}
	if len(fields) == 0 {
		return nil, services.ErrNotFound
	}
	m := parseMemory(key, fields)
	return &m, nil
}

// Delete removes one memory by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	key := s.normalizeID(id)
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if n == 0 {
		return services.ErrNotFound
	}
	return nil
}

// List returns memories newest-first with SCAN-based pagination and the
// total count. Embeddings are not included.
func (s *Store) List(ctx context.Context, offset, limit int) ([]models.Memory, int64, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(keys))

	// Newest first: keys are millisecond timestamps.
	sort.Slice(keys, func(i, j int) bool {
		return s.keyMillis(keys[i]) > s.keyMillis(keys[j])
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(keys) {
		return []models.Memory{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(keys) {
		end = len(keys)
	}

	memories := make([]models.Memory, 0, end-offset)
	for _, key := range keys[offset:end] {
		fields, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		memories = append(memories, parseMemory(key, fields))
	}
	return memories, total, nil
}

// Count returns the number of stored memories.
func (s *Store) Count(ctx context.Context) (int64, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// scanKeys returns every memory hash key. Keys under the prefix whose suffix
// is not a bare timestamp (e.g. the worker's cursor key) are excluded.
func (s *Store) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory keys: %w", err)
		}
		for _, key := range batch {
			if s.keyMillis(key) >= 0 {
				keys = append(keys, key)
			}
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// keyMillis extracts the millisecond timestamp from a memory key,
// or -1 when the key is not a memory hash.
func (s *Store) keyMillis(key string) int64 {
	suffix := strings.TrimPrefix(key, s.prefix)
	if suffix == key || suffix == "" {
		return -1
	}
	ms, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return -1
	}
	return ms
}

func (s *Store) normalizeID(id string) string {
	if strings.HasPrefix(id, s.prefix) {
		return id
	}
	return s.prefix + id
}

// parseMemory builds a Memory from hash fields, ignoring the embedding.
func parseMemory(id string, fields map[string]string) models.Memory {
	m := models.Memory{
		ID:        id,
		Message:   fields["message"],
		SessionID: fields["session_id"],
		Metadata:  fields["metadata"],
	}
	m.Perplexity, _ = strconv.ParseFloat(fields["perplexity"], 64)
	m.SurpriseScore, _ = strconv.ParseFloat(fields["surprise_score"], 64)
	m.Timestamp, _ = strconv.ParseFloat(fields["timestamp"], 64)
	return m
}

// encodeVector packs float32s little-endian for the RediSearch VECTOR field.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Hash fields come back as
// strings, so the caller converts with []byte(s).
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// tagSpecials are characters RediSearch treats as syntax inside TAG queries.
const tagSpecials = ",.<>{}[]\"':;!@#$%^&*()-+=~| "

// escapeTag backslash-escapes a value for use inside a TAG filter.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if strings.ContainsRune(tagSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
