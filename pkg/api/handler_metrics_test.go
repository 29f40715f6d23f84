package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/models"
)

// fakeMetrics is a function-field MetricsSource.
type fakeMetrics struct {
	collectFn func(ctx context.Context) models.MetricsSnapshot
	historyFn func(ctx context.Context, hours int) ([]models.MetricsSnapshot, error)
}

func (f *fakeMetrics) Collect(ctx context.Context) models.MetricsSnapshot {
	if f.collectFn == nil {
		return models.MetricsSnapshot{}
	}
	return f.collectFn(ctx)
}

func (f *fakeMetrics) History(ctx context.Context, hours int) ([]models.MetricsSnapshot, error) {
	if f.historyFn == nil {
		return nil, nil
	}
	return f.historyFn(ctx, hours)
}

func TestMetricsHandler(t *testing.T) {
	s := newTestServer(t)
	s.memory = &fakeMemoryStore{countFn: func(context.Context) (int64, error) { return 123, nil }}
	s.SetMetrics(&fakeMetrics{collectFn: func(context.Context) models.MetricsSnapshot {
		return models.MetricsSnapshot{
			CPUPercent:   12.5,
			MemoryMB:     256,
			EngineStatus: "healthy",
			RedisStatus:  "healthy",
		}
	}}, nil)

	var resp systemStatusResponse
	rec := doJSON(t, s, http.MethodGet, "/metrics", nil, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp.Status)
	assert.InDelta(t, 12.5, resp.System.CPUPercent, 1e-9)
	assert.EqualValues(t, 123, resp.MemoryStats.TotalMemories)
	assert.Equal(t, "HNSW", resp.MemoryStats.IndexType)
	require.Len(t, resp.Services, 4)
	assert.Equal(t, "Brain", resp.Services[0].Name)
	assert.Equal(t, "healthy", resp.Services[1].Status)
}

func TestMetricsHandlerNotConfigured(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/metrics", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHistoryHandler(t *testing.T) {
	s := newTestServer(t)
	var gotHours int
	s.SetMetrics(&fakeMetrics{historyFn: func(_ context.Context, hours int) ([]models.MetricsSnapshot, error) {
		gotHours = hours
		return []models.MetricsSnapshot{
			{CPUPercent: 10, MemoryMB: 100, RequestCount: 5, AvgLatency: 0.2, ErrorRate: 0.1},
			{CPUPercent: 30, MemoryMB: 200, RequestCount: 9, AvgLatency: 0.4, ErrorRate: 0.05},
		}, nil
	}}, nil)

	var resp metricsHistoryResponse
	rec := doJSON(t, s, http.MethodGet, "/metrics/history?hours=6", nil, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, gotHours)
	assert.Equal(t, "6h", resp.TimeRange)
	require.Len(t, resp.Metrics, 2)
	assert.InDelta(t, 20, resp.Summary["avg_cpu"], 1e-9)
	assert.InDelta(t, 30, resp.Summary["max_cpu"], 1e-9)
	assert.InDelta(t, 150, resp.Summary["avg_memory"], 1e-9)
	assert.InDelta(t, 9, resp.Summary["total_requests"], 1e-9)
	assert.InDelta(t, 0.4, resp.Summary["avg_latency"], 1e-9)
}

func TestMetricsHistoryHandlerClampsHours(t *testing.T) {
	s := newTestServer(t)
	var gotHours int
	s.SetMetrics(&fakeMetrics{historyFn: func(_ context.Context, hours int) ([]models.MetricsSnapshot, error) {
		gotHours = hours
		return nil, nil
	}}, nil)

	rec := doJSON(t, s, http.MethodGet, "/metrics/history?hours=99", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, gotHours)

	rec = doJSON(t, s, http.MethodGet, "/metrics/history?hours=0", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gotHours)
}

func TestMetricsHistoryHandlerEmptySummary(t *testing.T) {
	s := newTestServer(t)
	s.SetMetrics(&fakeMetrics{}, nil)

	var resp metricsHistoryResponse
	rec := doJSON(t, s, http.MethodGet, "/metrics/history", nil, &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Summary)
}
