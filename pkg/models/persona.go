package models

// Persona is a configurable chat personality. The active persona's
// Personality (plus History, when present) becomes the chat system prompt.
type Persona struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Personality     string `json:"personality"`
	History         string `json:"history,omitempty"`
	AvatarPath      string `json:"avatar_path,omitempty"`
	VoiceSamplePath string `json:"voice_sample_path,omitempty"`
	CreatedAt       string `json:"created_at"`
	LastModified    string `json:"last_modified"`
}

// CreatePersonaRequest contains fields for creating a persona.
type CreatePersonaRequest struct {
	Name            string `json:"name"`
	Personality     string `json:"personality"`
	History         string `json:"history,omitempty"`
	AvatarPath      string `json:"avatar_path,omitempty"`
	VoiceSamplePath string `json:"voice_sample_path,omitempty"`
}

// UpdatePersonaRequest carries a partial persona update. Nil fields are
// left unchanged.
type UpdatePersonaRequest struct {
	Name            *string `json:"name,omitempty"`
	Personality     *string `json:"personality,omitempty"`
	History         *string `json:"history,omitempty"`
	AvatarPath      *string `json:"avatar_path,omitempty"`
	VoiceSamplePath *string `json:"voice_sample_path,omitempty"`
}

// ActivePersona is the activation state returned by the personas API.
type ActivePersona struct {
	ActivePersonaID string   `json:"active_persona_id,omitempty"`
	Persona         *Persona `json:"persona,omitempty"`
}
