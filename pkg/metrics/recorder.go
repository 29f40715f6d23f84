// Package metrics samples process health and request statistics, mirroring
// a rolling history into Redis for the metrics API.
package metrics

import (
	"sync"
	"time"
)

// Recorder accumulates request statistics from the HTTP middleware.
type Recorder struct {
	mu           sync.Mutex
	requestCount int64
	totalLatency time.Duration
	errorCount   int64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordRequest adds one served request to the running totals.
func (r *Recorder) RecordRequest(latency time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount++
	r.totalLatency += latency
	if !success {
		r.errorCount++
	}
}

// Snapshot returns the request count, mean latency in seconds, and error
// rate as a percentage.
func (r *Recorder) Snapshot() (count int64, avgLatency, errorRate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.requestCount == 0 {
		return 0, 0, 0
	}
	avgLatency = r.totalLatency.Seconds() / float64(r.requestCount)
	errorRate = float64(r.errorCount) / float64(r.requestCount) * 100
	return r.requestCount, avgLatency, errorRate
}
