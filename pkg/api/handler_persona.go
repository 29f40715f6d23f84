package api

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
)

// listPersonasHandler handles GET /personas.
func (s *Server) listPersonasHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.personas.List())
}

// createPersonaHandler handles POST /personas.
func (s *Server) createPersonaHandler(c *echo.Context) error {
	var req models.CreatePersonaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name cannot be empty")
	}

	persona, err := s.personas.Create(req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, persona)
}

// updatePersonaHandler handles PUT /personas/:id.
func (s *Server) updatePersonaHandler(c *echo.Context) error {
	var req models.UpdatePersonaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	persona, err := s.personas.Update(c.Param("id"), req)
	if err != nil {
		return personaError(err)
	}
	return c.JSON(http.StatusOK, persona)
}

// deletePersonaHandler handles DELETE /personas/:id.
func (s *Server) deletePersonaHandler(c *echo.Context) error {
	if err := s.personas.Delete(c.Param("id")); err != nil {
		return personaError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// activatePersonaHandler handles POST /personas/activate/:id.
func (s *Server) activatePersonaHandler(c *echo.Context) error {
	persona, err := s.personas.Activate(c.Param("id"))
	if err != nil {
		return personaError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "activated",
		"persona": persona,
	})
}

// deactivatePersonaHandler handles POST /personas/deactivate.
func (s *Server) deactivatePersonaHandler(c *echo.Context) error {
	if err := s.personas.Deactivate(); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deactivated"})
}

// activePersonaHandler handles GET /personas/active.
func (s *Server) activePersonaHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.personas.Active())
}

func personaError(err error) error {
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Persona not found")
	}
	return mapServiceError(err)
}
