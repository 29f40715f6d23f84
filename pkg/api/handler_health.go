package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/memory"
	"github.com/archive-ai/brain/pkg/version"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusUnknown   = "unknown"

	healthProbeTimeout = 2 * time.Second
)

// healthComponent is one dependency's state in the /health response.
type healthComponent struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the composite /health body.
type healthResponse struct {
	Status      string                     `json:"status"`
	Services    map[string]healthComponent `json:"services"`
	AsyncMemory *memory.WorkerStatus       `json:"async_memory,omitempty"`
}

// rootHandler handles GET /: minimal liveness response.
func (s *Server) rootHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "archive-brain",
		"version": version.Full(),
	})
}

// healthHandler handles GET /health: probes Redis and the engine/sandbox
// services with a bounded budget each. Redis or the fast engine down makes
// the whole service unhealthy (503); optional services degrade it.
func (s *Server) healthHandler(c *echo.Context) error {
	ctx := c.Request().Context()

	services := map[string]healthComponent{
		"redis":       s.redisComponent(ctx),
		"fast_engine": probeComponent(ctx, s.fastProbe),
		"deep_engine": probeComponent(ctx, s.deepProbe),
		"sandbox":     probeComponent(ctx, s.sandboxProbe),
	}

	status := statusHealthy
	if services["deep_engine"].Status == statusUnhealthy ||
		services["sandbox"].Status == statusUnhealthy {
		status = statusDegraded
	}
	if services["redis"].Status == statusUnhealthy ||
		services["fast_engine"].Status == statusUnhealthy {
		status = statusUnhealthy
	}

	resp := healthResponse{Status: status, Services: services}
	if s.worker != nil {
		ws := s.worker.Status(ctx)
		resp.AsyncMemory = &ws
	}

	httpStatus := http.StatusOK
	if status == statusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, resp)
}

func (s *Server) redisComponent(ctx context.Context) healthComponent {
	if s.memory == nil {
		return healthComponent{Status: statusUnknown}
	}
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if err := s.memory.Ping(ctx); err != nil {
		return healthComponent{Status: statusUnhealthy, Message: err.Error()}
	}
	return healthComponent{Status: statusHealthy}
}

func probeComponent(ctx context.Context, p Prober) healthComponent {
	if p == nil {
		return healthComponent{Status: statusUnknown}
	}
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if err := p.Health(ctx); err != nil {
		return healthComponent{Status: statusUnhealthy, Message: err.Error()}
	}
	return healthComponent{Status: statusHealthy}
}
