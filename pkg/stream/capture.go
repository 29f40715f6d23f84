// Package stream appends conversation input to the Redis stream the surprise
// worker consumes.
package stream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Capture appends entries to a capped Redis stream.
type Capture struct {
	rdb    *redis.Client
	key    string
	maxLen int64
}

// NewCapture creates a stream capture. maxLen bounds the stream length
// (approximate trimming).
func NewCapture(rdb *redis.Client, key string, maxLen int64) *Capture {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &Capture{rdb: rdb, key: key, maxLen: maxLen}
}

// Key returns the stream key.
func (c *Capture) Key() string { return c.key }

// Append adds one entry with the current timestamp plus any metadata fields.
// Callers on the chat path treat failures as non-fatal: losing one capture
// must never break a conversation.
func (c *Capture) Append(ctx context.Context, message string, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"message":   message,
		"timestamp": strconv.FormatFloat(float64(time.Now().UnixMilli())/1000.0, 'f', 3, 64),
	}
	for k, v := range metadata {
		if k == "message" || k == "timestamp" {
			continue
		}
		values[k] = v
	}

	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.key,
		MaxLen: c.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to input stream: %w", err)
	}
	return id, nil
}

// Len returns the current stream length.
func (c *Capture) Len(ctx context.Context) (int64, error) {
	return c.rdb.XLen(ctx, c.key).Result()
}

// Trim hard-trims the stream to maxLen entries.
func (c *Capture) Trim(ctx context.Context, maxLen int64) (int64, error) {
	return c.rdb.XTrimMaxLen(ctx, c.key, maxLen).Result()
}
