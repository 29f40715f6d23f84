package api

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"
)

// securityHeaders returns middleware that sets standard security response headers.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			return next(c)
		}
	}
}

// requestMetrics feeds request latency and outcome to the metrics recorder.
// A request counts as failed when the handler returns a server-side error.
func (s *Server) requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			start := time.Now()
			err := next(c)
			if s.recorder != nil {
				s.recorder.RecordRequest(time.Since(start), requestSucceeded(err))
			}
			return err
		}
	}
}

// requestSucceeded classifies a handler error for the metrics recorder.
// Client errors (4xx) still count as successful requests.
func requestSucceeded(err error) bool {
	if err == nil {
		return true
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code < http.StatusInternalServerError
	}
	return false
}

// rateLimiter is a sliding-window request counter keyed by client IP.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	seen      map[string][]time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = 30
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		seen:   map[string][]time.Time{},
	}
}

// allow records one request for the client and reports whether it is within
// the window budget.
func (r *rateLimiter) allow(client string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	r.sweep(cutoff, now)

	recent := r.seen[client][:0]
	for _, t := range r.seen[client] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= r.limit {
		r.seen[client] = recent
		return false
	}
	r.seen[client] = append(recent, now)
	return true
}

// sweep drops clients whose every recorded request has left the window, at
// most once per window, so the map does not grow without bound under client
// churn. Caller holds the mutex.
func (r *rateLimiter) sweep(cutoff, now time.Time) {
	if now.Sub(r.lastSweep) < r.window {
		return
	}
	r.lastSweep = now
	for client, times := range r.seen {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(r.seen, client)
		}
	}
}

// rateLimit returns per-route middleware enforcing the chat request budget.
func (s *Server) rateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !s.limiter.allow(clientIP(c.Request()), time.Now()) {
				return echo.NewHTTPError(http.StatusTooManyRequests,
					"Rate limit exceeded. Maximum 30 requests per minute.")
			}
			return next(c)
		}
	}
}

// clientIP resolves the originating client address, preferring the first
// X-Forwarded-For hop when a proxy is in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
