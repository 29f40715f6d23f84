package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/url"
	"time"
)

const (
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// isTransient reports whether err is worth retrying: rate limiting, engine
// overload, or a transport failure. Context cancellation is never retried.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		switch he.Status {
		case 429, 502, 503, 504:
			return true
		}
		return false
	}
	// http.Client.Do wraps transport failures (connection refused, reset,
	// DNS) in *url.Error; those are worth retrying. Decode errors are not.
	var ue *url.Error
	return errors.As(err, &ue)
}

// retryBackoff returns the delay before retry i (0-indexed).
// Exponential: base * 2^i, plus up to 50% random jitter.
func retryBackoff(i int) time.Duration {
	exp := baseDelay * (1 << i)
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp + jitter
}

// retryCall calls fn up to maxAttempts times, sleeping between transient
// failures. Non-transient errors return immediately.
func retryCall[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil || !isTransient(err) {
			return result, err
		}
		last = err
		slog.Warn("Retrying transient engine error",
			"engine", name, "attempt", i+1, "max_attempts", maxAttempts, "error", err)
		if i < maxAttempts-1 {
			timer := time.NewTimer(retryBackoff(i))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return zero, last
}
