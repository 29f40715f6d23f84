package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/services"
)

// errorResponse is the error body shape every failing endpoint returns.
// RecoverySteps carries operator guidance for infrastructure failures.
type errorResponse struct {
	Detail        string   `json:"detail"`
	RecoverySteps []string `json:"recovery_steps,omitempty"`
}

// mapServiceError maps service-layer errors to HTTP error responses.
// Unavailability errors pass through unchanged so the error handler can
// attach their recovery steps.
func mapServiceError(err error) error {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Message)
	}
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, services.ErrRateLimited) {
		return echo.NewHTTPError(http.StatusTooManyRequests,
			"Rate limit exceeded. Maximum 30 requests per minute.")
	}
	if isUnavailable(err) {
		return err
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func isUnavailable(err error) bool {
	return errors.Is(err, services.ErrLLMUnavailable) ||
		errors.Is(err, services.ErrRedisUnavailable) ||
		errors.Is(err, services.ErrSandboxUnavailable)
}

// httpErrorHandler renders every error as {"detail": ...}, attaching
// recovery steps for the infrastructure failures that have them.
func (s *Server) httpErrorHandler(c *echo.Context, err error) {
	code := http.StatusInternalServerError
	detail := "internal server error"
	var steps []string

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Message != "" {
			detail = he.Message
		}
	case isUnavailable(err):
		code = http.StatusServiceUnavailable
		detail = err.Error()
		steps = services.RecoverySteps(err)
	}

	if c.Request().Method == http.MethodHead {
		if werr := c.NoContent(code); werr != nil {
			slog.Error("Failed to write error response", "error", werr)
		}
		return
	}
	if werr := c.JSON(code, errorResponse{Detail: detail, RecoverySteps: steps}); werr != nil {
		slog.Error("Failed to write error response", "error", werr)
	}
}
