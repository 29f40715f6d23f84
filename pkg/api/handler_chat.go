package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
	"github.com/archive-ai/brain/pkg/verify"
)

// verifyRequest is the body for POST /verify.
type verifyRequest struct {
	Message string `json:"message"`
	Engine  string `json:"engine,omitempty"`
}

// verifyResponse is a verification chain result plus the serving engine tag.
type verifyResponse struct {
	*verify.Result
	Engine string `json:"engine"`
}

// chatHandler handles POST /chat: routed conversation with persona-aware
// engine calls and memory-search short-circuiting.
func (s *Server) chatHandler(c *echo.Context) error {
	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.chat.ProcessChat(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// verifyHandler handles POST /verify: answer the message, then cross-examine
// the answer with verification questions before responding.
func (s *Server) verifyHandler(c *echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message cannot be empty")
	}
	if s.completer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "verification is not available")
	}

	s.captureInput(c.Request().Context(), req.Message)

	completer := s.completer
	engineTag := s.engineTag
	if req.Engine != "" && s.engines != nil {
		completer = s.engines.Bind(req.Engine)
		engineTag = req.Engine
	}

	result, err := verify.NewChain(completer).Verify(c.Request().Context(), req.Message, "")
	if err != nil {
		return mapServiceError(fmt.Errorf("%w: %v", services.ErrLLMUnavailable, err))
	}
	return c.JSON(http.StatusOK, verifyResponse{Result: result, Engine: engineTag})
}

// captureInput appends a message to the surprise worker's input stream.
// Failures are logged and ignored.
func (s *Server) captureInput(ctx context.Context, message string) {
	if s.capture == nil {
		return
	}
	if _, err := s.capture.Append(ctx, message, nil); err != nil {
		slog.Warn("Failed to capture input", "error", err)
	}
}
