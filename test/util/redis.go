// Package util provides test utilities and helper functions for Redis Stack
// integration testing.
package util

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	// Shared connection string for all tests in local dev
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// NewTestRedis returns a Redis Stack client for integration tests, skipping
// in -short mode. Isolation comes from per-test key prefixes (see
// UniquePrefix), not separate instances.
// - CI: connects to the external Redis Stack service from CI_REDIS_URL
// - Local: uses a shared testcontainer (started once per package)
func NewTestRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	connStr := getOrCreateSharedRedis(t)

	opts, err := goredis.ParseURL(connStr)
	require.NoError(t, err)
	rdb := goredis.NewClient(opts)
	require.NoError(t, rdb.Ping(context.Background()).Err())

	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// getOrCreateSharedRedis returns a connection string to the shared Redis.
// In CI, uses CI_REDIS_URL. In local dev, creates a shared testcontainer
// once; the reaper removes it when the test process exits.
func getOrCreateSharedRedis(t *testing.T) string {
	if ciRedisURL := os.Getenv("CI_REDIS_URL"); ciRedisURL != "" {
		t.Log("Using external Redis Stack from CI_REDIS_URL")
		return ciRedisURL
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("Starting shared Redis Stack testcontainer for all tests")

		redisContainer, err := tcredis.Run(ctx, "redis/redis-stack-server:7.4.0-v3")
		if err != nil {
			containerErr = fmt.Errorf("failed to start redis container: %w", err)
			return
		}

		connStr, err := redisContainer.ConnectionString(ctx)
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}

		sharedConnStr = connStr
		t.Logf("Shared container ready: %s", sharedConnStr)
	})

	require.NoError(t, containerErr, "Failed to setup shared test container")
	return sharedConnStr
}

// UniquePrefix creates a unique, Redis-safe key prefix for the test.
// Format: test_<sanitized_test_name>_<random_hex>:
func UniquePrefix(t *testing.T) string {
	testName := strings.ToLower(t.Name())
	testName = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, testName)
	if len(testName) > 40 {
		testName = testName[:40]
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("failed to generate random bytes for key prefix: %v", err)
	}

	return fmt.Sprintf("test_%s_%s:", testName, hex.EncodeToString(randomBytes))
}
