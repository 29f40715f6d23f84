package api

import (
	"fmt"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/services"
)

// askLLMRequest is the body the sandbox's ask_llm helper posts back.
type askLLMRequest struct {
	ExecutionID string `json:"execution_id"`
	Prompt      string `json:"prompt"`
}

// askLLMHandler handles POST /internal/ask_llm: nested LLM calls from code
// running in the sandbox. Each call draws down the owning execution's
// budget; unknown or exhausted execution IDs are refused.
func (s *Server) askLLMHandler(c *echo.Context) error {
	var req askLLMRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Prompt cannot be empty")
	}
	if s.callbacks == nil || s.engines == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "nested LLM calls are not available")
	}

	if err := s.callbacks.Acquire(req.ExecutionID); err != nil {
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	}

	text, _, err := s.engines.Chat(c.Request().Context(), "",
		[]llm.Message{{Role: "user", Content: req.Prompt}},
		llm.Options{MaxTokens: 512, Temperature: 0.3})
	if err != nil {
		return mapServiceError(fmt.Errorf("%w: %v", services.ErrLLMUnavailable, err))
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}
