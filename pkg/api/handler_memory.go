package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
)

// memoryListResponse is the body for list and search results.
type memoryListResponse struct {
	Memories []models.Memory `json:"memories"`
	Total    int64           `json:"total"`
}

// listMemoriesHandler handles GET /memories?limit=&offset=.
func (s *Server) listMemoriesHandler(c *echo.Context) error {
	limit := 50
	offset := 0
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	memories, total, err := s.memory.List(c.Request().Context(), offset, limit)
	if err != nil {
		return mapServiceError(err)
	}
	if memories == nil {
		memories = []models.Memory{}
	}
	return c.JSON(http.StatusOK, memoryListResponse{Memories: memories, Total: total})
}

// searchMemoriesHandler handles POST /memories/search: vector similarity
// search over stored memories.
func (s *Server) searchMemoriesHandler(c *echo.Context) error {
	var req models.SearchMemoriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query cannot be empty")
	}

	memories, err := s.memory.Search(c.Request().Context(), req.Query, req.TopK, req.SessionID)
	if err != nil {
		return mapServiceError(err)
	}
	if memories == nil {
		memories = []models.Memory{}
	}
	return c.JSON(http.StatusOK, memoryListResponse{Memories: memories, Total: int64(len(memories))})
}

// getMemoryHandler handles GET /memories/:id.
func (s *Server) getMemoryHandler(c *echo.Context) error {
	mem, err := s.memory.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Memory not found")
		}
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, mem)
}

// deleteMemoryHandler handles DELETE /memories/:id.
func (s *Server) deleteMemoryHandler(c *echo.Context) error {
	id := c.Param("id")
	if err := s.memory.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Memory not found")
		}
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
