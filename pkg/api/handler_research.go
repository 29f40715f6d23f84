package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/agent"
)

// researchRequest is the body for POST /research.
type researchRequest struct {
	Question string `json:"question"`
}

// researchResponse is a researched answer plus the question and engine tag.
type researchResponse struct {
	Question string `json:"question"`
	agent.ResearchResult
	Engine string `json:"engine"`
}

// multiResearchRequest is the body for POST /research/multi.
type multiResearchRequest struct {
	Questions []string `json:"questions"`
}

// researchHandler handles POST /research: answer a question with library and
// memory citations.
func (s *Server) researchHandler(c *echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Question cannot be empty")
	}
	if s.researcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "research agent is not available")
	}

	result := s.researcher.Research(c.Request().Context(), req.Question)
	return c.JSON(http.StatusOK, researchResponse{
		Question:       req.Question,
		ResearchResult: result,
		Engine:         s.engineTag,
	})
}

// researchMultiHandler handles POST /research/multi: research each question,
// then synthesize the findings.
func (s *Server) researchMultiHandler(c *echo.Context) error {
	var req multiResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Questions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Questions list cannot be empty")
	}
	if s.researcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "research agent is not available")
	}

	result, err := s.researcher.MultiResearch(c.Request().Context(), req.Questions)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}
