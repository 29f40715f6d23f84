package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
)

// archiveSearchRequest is the body for POST /admin/search_archive.
// MaxResults zero selects the default of 10.
type archiveSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// archiveSearchResponse is the body for POST /admin/search_archive.
type archiveSearchResponse struct {
	Query   string              `json:"query"`
	Results []map[string]string `json:"results"`
	Count   int                 `json:"count"`
}

// archiveRunHandler handles POST /admin/archive_old_memories: trigger an
// archival pass with the configured age and retention settings.
func (s *Server) archiveRunHandler(c *echo.Context) error {
	if s.archive == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "archival is not configured")
	}

	stats, err := s.archive.Archive(c.Request().Context(),
		s.cfg.ArchiveOlderThanDays, s.cfg.ArchiveKeepRecent)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// archiveStatsHandler handles GET /admin/archive_stats.
func (s *Server) archiveStatsHandler(c *echo.Context) error {
	if s.archive == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "archival is not configured")
	}

	stats, err := s.archive.Stats()
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// archiveSearchHandler handles POST /admin/search_archive: substring search
// over the on-disk archive, newest first.
func (s *Server) archiveSearchHandler(c *echo.Context) error {
	if s.archive == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "archival is not configured")
	}

	var req archiveSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query cannot be empty")
	}
	if len(query) > 500 {
		return echo.NewHTTPError(http.StatusBadRequest, "Query too long (max 500 characters)")
	}

	maxResults := 10
	if req.MaxResults != 0 {
		if req.MaxResults < 1 || req.MaxResults > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "max_results must be between 1 and 100")
		}
		maxResults = req.MaxResults
	}

	results, err := s.archive.Search(query, maxResults)
	if err != nil {
		return mapServiceError(err)
	}
	if results == nil {
		results = []map[string]string{}
	}
	return c.JSON(http.StatusOK, archiveSearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}
