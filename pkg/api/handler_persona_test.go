package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-ai/brain/pkg/models"
)

func TestPersonaLifecycle(t *testing.T) {
	s := newTestServer(t)

	// Create.
	var created models.Persona
	rec := doJSON(t, s, http.MethodPost, "/personas",
		map[string]string{"name": "Scholar", "personality": "You are a meticulous scholar."}, &created)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Scholar", created.Name)

	// List.
	var list []models.Persona
	rec = doJSON(t, s, http.MethodGet, "/personas", nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list, 1)

	// Activate, then check the active endpoint.
	var activated struct {
		Status  string         `json:"status"`
		Persona models.Persona `json:"persona"`
	}
	rec = doJSON(t, s, http.MethodPost, "/personas/activate/"+created.ID, nil, &activated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "activated", activated.Status)
	assert.Equal(t, created.ID, activated.Persona.ID)

	var active models.ActivePersona
	rec = doJSON(t, s, http.MethodGet, "/personas/active", nil, &active)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, active.Persona)
	assert.Equal(t, created.ID, active.ActivePersonaID)

	// Update.
	var updated models.Persona
	rec = doJSON(t, s, http.MethodPut, "/personas/"+created.ID,
		map[string]string{"personality": "You are a terse scholar."}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You are a terse scholar.", updated.Personality)
	assert.Equal(t, "Scholar", updated.Name)

	// Deactivate clears the active persona.
	rec = doJSON(t, s, http.MethodPost, "/personas/deactivate", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/personas/active", nil, &active)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, active.ActivePersonaID)

	// Delete.
	rec = doJSON(t, s, http.MethodDelete, "/personas/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/personas", nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, list)
}

func TestCreatePersonaHandlerEmptyName(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/personas", map[string]string{"name": "  "}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name cannot be empty", errDetail(t, rec))
}

func TestPersonaHandlersNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/personas/missing", map[string]string{"name": "X"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Persona not found", errDetail(t, rec))

	rec = doJSON(t, s, http.MethodDelete, "/personas/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/personas/activate/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
