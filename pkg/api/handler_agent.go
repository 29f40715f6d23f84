package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/agent"
	"github.com/archive-ai/brain/pkg/agent/controller"
	"github.com/archive-ai/brain/pkg/agent/tools"
)

// agentRequest is the body for the ReAct agent endpoints.
type agentRequest struct {
	Question string `json:"question"`
	MaxSteps int    `json:"max_steps,omitempty"`
}

// agentResponse is a finished agent run plus the serving engine tag.
type agentResponse struct {
	controller.Result
	Engine string `json:"engine"`
}

// recursiveRequest is the body for POST /agent/recursive.
type recursiveRequest struct {
	Question string `json:"question"`
	Corpus   string `json:"corpus"`
}

// recursiveResponse is a finished RLM run plus the serving engine tag.
type recursiveResponse struct {
	agent.RecursiveResult
	Engine string `json:"engine"`
}

// codeAssistRequest is the body for POST /code_assist. Zero values take the
// defaults (3 attempts, 10s timeout).
type codeAssistRequest struct {
	Task        string `json:"task"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Timeout     int    `json:"timeout,omitempty"`
}

// codeAssistResponse is a finished code-assist run plus the serving engine tag.
type codeAssistResponse struct {
	agent.CodeResult
	Engine string `json:"engine"`
}

// agentHandler handles POST /agent: ReAct run over the basic toolset.
func (s *Server) agentHandler(c *echo.Context) error {
	return s.runAgent(c, tools.Basic())
}

// agentAdvancedHandler handles POST /agent/advanced and /agent/react:
// ReAct run over the full toolset (memory search and sandbox included).
func (s *Server) agentAdvancedHandler(c *echo.Context) error {
	return s.runAgent(c, tools.Advanced(s.memory, s.sandboxClient))
}

func (s *Server) runAgent(c *echo.Context, registry *tools.Registry) error {
	var req agentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Question cannot be empty")
	}
	if s.completer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "agent is not available")
	}

	s.captureInput(c.Request().Context(), req.Question)

	ctrl := controller.New(s.completer, registry)
	if req.MaxSteps > 0 {
		ctrl.MaxSteps = req.MaxSteps
	}
	result := ctrl.Solve(c.Request().Context(), req.Question)

	return c.JSON(http.StatusOK, agentResponse{Result: result, Engine: s.engineTag})
}

// agentRecursiveHandler handles POST /agent/recursive: RLM run over a corpus.
func (s *Server) agentRecursiveHandler(c *echo.Context) error {
	var req recursiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Question cannot be empty")
	}
	if req.Corpus == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Corpus cannot be empty")
	}
	if s.recursive == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "recursive agent is not available")
	}

	result := s.recursive.Solve(c.Request().Context(), req.Question, req.Corpus)
	return c.JSON(http.StatusOK, recursiveResponse{RecursiveResult: result, Engine: s.engineTag})
}

// codeAssistHandler handles POST /code_assist: generate, test, and debug
// Python code in the sandbox.
func (s *Server) codeAssistHandler(c *echo.Context) error {
	var req codeAssistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Task) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Task cannot be empty")
	}
	if req.MaxAttempts != 0 && (req.MaxAttempts < 1 || req.MaxAttempts > 5) {
		return echo.NewHTTPError(http.StatusBadRequest, "max_attempts must be between 1 and 5")
	}
	if req.Timeout != 0 && (req.Timeout < 1 || req.Timeout > 30) {
		return echo.NewHTTPError(http.StatusBadRequest, "timeout must be between 1 and 30 seconds")
	}
	if s.codeAssistant == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "code assistant is not available")
	}

	result := s.codeAssistant.Assist(c.Request().Context(), req.Task, req.MaxAttempts, req.Timeout)
	return c.JSON(http.StatusOK, codeAssistResponse{CodeResult: result, Engine: s.engineTag})
}
