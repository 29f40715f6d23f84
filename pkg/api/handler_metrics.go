package api

import (
	"fmt"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/models"
)

// memoryStats summarizes the vector store for the dashboard.
type memoryStats struct {
	TotalMemories     int64   `json:"total_memories"`
	SurpriseThreshold float64 `json:"surprise_threshold"`
	EmbeddingDim      int     `json:"embedding_dim"`
	IndexType         string  `json:"index_type"`
}

// serviceStatus is one collaborator's health in the dashboard response.
type serviceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

// systemStatusResponse is the body for GET /metrics.
type systemStatusResponse struct {
	Status        string                `json:"status"`
	UptimeSeconds float64               `json:"uptime_seconds"`
	System        models.MetricsSnapshot `json:"system"`
	MemoryStats   memoryStats           `json:"memory_stats"`
	Services      []serviceStatus       `json:"services"`
}

// metricsHistoryResponse is the body for GET /metrics/history.
type metricsHistoryResponse struct {
	Metrics   []models.MetricsSnapshot `json:"metrics"`
	TimeRange string                   `json:"time_range"`
	Summary   map[string]float64       `json:"summary"`
}

// metricsHandler handles GET /metrics: current snapshot plus vector-store
// and per-service status.
func (s *Server) metricsHandler(c *echo.Context) error {
	if s.metrics == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "metrics are not available")
	}
	ctx := c.Request().Context()
	snapshot := s.metrics.Collect(ctx)

	stats := memoryStats{
		SurpriseThreshold: s.cfg.SurpriseThreshold,
		EmbeddingDim:      s.cfg.EmbeddingDim,
		IndexType:         "HNSW",
	}
	if s.memory != nil {
		if count, err := s.memory.Count(ctx); err == nil {
			stats.TotalMemories = count
		}
	}

	services := []serviceStatus{
		{Name: "Brain", Status: statusHealthy, URL: "internal"},
		{Name: "Fast Engine", Status: snapshot.EngineStatus, URL: s.cfg.FastEngineURL},
		{Name: "Redis", Status: snapshot.RedisStatus, URL: s.cfg.RedisURL},
		{Name: "Sandbox", Status: snapshot.SandboxStatus, URL: s.cfg.SandboxURL},
	}

	return c.JSON(http.StatusOK, systemStatusResponse{
		Status:        statusHealthy,
		UptimeSeconds: s.uptime(),
		System:        snapshot,
		MemoryStats:   stats,
		Services:      services,
	})
}

// metricsHistoryHandler handles GET /metrics/history?hours= (1-24, default 1).
func (s *Server) metricsHistoryHandler(c *echo.Context) error {
	if s.metrics == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "metrics are not available")
	}

	hours := 1
	if v := c.QueryParam("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			hours = n
		}
	}
	if hours < 1 {
		hours = 1
	}
	if hours > 24 {
		hours = 24
	}

	history, err := s.metrics.History(c.Request().Context(), hours)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, metricsHistoryResponse{
		Metrics:   history,
		TimeRange: fmt.Sprintf("%dh", hours),
		Summary:   summarize(history),
	})
}

// summarize aggregates a metrics window the way the dashboard graphs expect.
func summarize(history []models.MetricsSnapshot) map[string]float64 {
	if len(history) == 0 {
		return map[string]float64{}
	}
	var cpuSum, cpuMax, memSum, memMax float64
	for _, m := range history {
		cpuSum += m.CPUPercent
		memSum += m.MemoryMB
		if m.CPUPercent > cpuMax {
			cpuMax = m.CPUPercent
		}
		if m.MemoryMB > memMax {
			memMax = m.MemoryMB
		}
	}
	latest := history[len(history)-1]
	return map[string]float64{
		"avg_cpu":        cpuSum / float64(len(history)),
		"max_cpu":        cpuMax,
		"avg_memory":     memSum / float64(len(history)),
		"max_memory":     memMax,
		"total_requests": float64(latest.RequestCount),
		"avg_latency":    latest.AvgLatency,
		"error_rate":     latest.ErrorRate,
	}
}
