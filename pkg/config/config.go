// Package config resolves service configuration from environment variables.
//
// Every setting has a default suitable for local development; invalid numeric
// or boolean values fall back to the default with a warning rather than
// failing startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds the resolved configuration for all components.
type Config struct {
	// HTTP server
	Host string
	Port int

	// Redis Stack (hashes + vector index + streams)
	RedisURL string

	// LLM engines. Fast is required; Deep is optional and enables fallback.
	FastEngineURL   string
	FastEngineModel string
	DeepEngineURL   string
	DeepEngineModel string

	// Embedding service (OpenAI-compatible /v1/embeddings).
	EmbedURL     string
	EmbedModel   string
	EmbeddingDim int

	// Peer services
	SandboxURL string
	LibraryURL string

	// Outbound HTTP budget for engine/sandbox/library calls.
	RequestTimeout time.Duration

	// Input stream capture
	StreamKey    string
	StreamMaxLen int64

	// Surprise worker
	LastIDKey             string
	StartFromLatest       bool
	SurpriseThreshold     float64
	SurpriseAlpha         float64
	PerplexityNormDivisor float64

	// Vector store
	MemoryIndex  string
	MemoryPrefix string

	// Cold-storage archiver
	ArchiveEnabled       bool
	ArchiveDir           string
	ArchiveOlderThanDays int
	ArchiveKeepRecent    int
	ArchiveHour          int
	ArchiveMinute        int

	// Personas
	PersonasDir string

	// Metrics collector
	MetricsInterval time.Duration

	// Chat rate limiting
	RateLimitPerMinute int

	// Base URL the sandbox uses to call back into this service (ask_llm).
	CallbackBaseURL string
}

// Load resolves configuration from the environment.
func Load() *Config {
	fastURL := getEnv("FAST_ENGINE_URL", "http://localhost:8001")

	return &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getInt("PORT", 8000),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		FastEngineURL:   fastURL,
		FastEngineModel: getEnv("FAST_ENGINE_MODEL", "Qwen/Qwen2.5-3B-Instruct"),
		DeepEngineURL:   getEnv("DEEP_ENGINE_URL", ""),
		DeepEngineModel: getEnv("DEEP_ENGINE_MODEL", ""),

		EmbedURL:     getEnv("EMBED_URL", fastURL),
		EmbedModel:   getEnv("EMBED_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		EmbeddingDim: getInt("EMBEDDING_DIM", 384),

		SandboxURL: getEnv("SANDBOX_URL", "http://localhost:8100"),
		LibraryURL: getEnv("LIBRARY_URL", ""),

		RequestTimeout: time.Duration(getInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		StreamKey:    getEnv("STREAM_KEY", "archive:input:stream"),
		StreamMaxLen: int64(getInt("STREAM_MAXLEN", 1000)),

		LastIDKey:             getEnv("LAST_ID_KEY", "memory:last_id"),
		StartFromLatest:       getBool("START_FROM_LATEST", true),
		SurpriseThreshold:     getFloat("SURPRISE_THRESHOLD", 0.7),
		SurpriseAlpha:         getFloat("SURPRISE_ALPHA", 0.6),
		PerplexityNormDivisor: getFloat("PERPLEXITY_NORM_DIVISOR", 5.0),

		MemoryIndex:  getEnv("MEMORY_INDEX", "memory_index"),
		MemoryPrefix: getEnv("MEMORY_PREFIX", "memory:"),

		ArchiveEnabled:       getBool("ARCHIVE_ENABLED", true),
		ArchiveDir:           getEnv("ARCHIVE_DIR", "data/archive"),
		ArchiveOlderThanDays: getInt("ARCHIVE_OLDER_THAN_DAYS", 30),
		ArchiveKeepRecent:    getInt("ARCHIVE_KEEP_RECENT", 1000),
		ArchiveHour:          getInt("ARCHIVE_HOUR", 3),
		ArchiveMinute:        getInt("ARCHIVE_MINUTE", 0),

		PersonasDir: getEnv("PERSONAS_DIR", "data"),

		MetricsInterval: time.Duration(getInt("METRICS_INTERVAL_SECONDS", 30)) * time.Second,

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),

		CallbackBaseURL: getEnv("CALLBACK_BASE_URL", "http://localhost:8000"),
	}
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DeepEngineConfigured reports whether a deep engine is available for
// fallback and deep-reasoning requests.
func (c *Config) DeepEngineConfigured() bool {
	return c.DeepEngineURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}
