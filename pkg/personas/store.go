// Package personas manages chat personas: small JSON-file-backed CRUD plus
// an activation pointer. The active persona's personality and history become
// the chat system prompt.
package personas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/services"
)

const (
	personasFile = "personas.json"
	activeFile   = "active_persona.json"
)

type activeState struct {
	ActiveID string `json:"active_id"`
}

// Store persists personas under one directory. All methods are safe for
// concurrent use; file writes happen under the store mutex.
type Store struct {
	mu         sync.Mutex
	listPath   string
	activePath string
}

// NewStore creates the store and its backing files if missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create personas directory: %w", err)
	}
	s := &Store{
		listPath:   filepath.Join(dir, personasFile),
		activePath: filepath.Join(dir, activeFile),
	}
	if _, err := os.Stat(s.listPath); os.IsNotExist(err) {
		if err := s.writeList(nil); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(s.activePath); os.IsNotExist(err) {
		if err := s.writeActive(""); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// List returns all personas. A corrupt or missing file reads as empty.
func (s *Store) List() []models.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readList()
}

// Get returns one persona by ID.
func (s *Store) Get(id string) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.readList() {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, services.ErrNotFound
}

// Create stores a new persona with a fresh ID and timestamps.
func (s *Store) Create(req models.CreatePersonaRequest) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timestamp()
	p := models.Persona{
		ID:              uuid.NewString(),
		Name:            req.Name,
		Personality:     req.Personality,
		History:         req.History,
		AvatarPath:      req.AvatarPath,
		VoiceSamplePath: req.VoiceSamplePath,
		CreatedAt:       now,
		LastModified:    now,
	}
	list := append(s.readList(), p)
	if err := s.writeList(list); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies the non-nil fields of req and bumps LastModified.
func (s *Store) Update(id string, req models.UpdatePersonaRequest) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.readList()
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if req.Name != nil {
			list[i].Name = *req.Name
		}
		if req.Personality != nil {
			list[i].Personality = *req.Personality
		}
		if req.History != nil {
			list[i].History = *req.History
		}
		if req.AvatarPath != nil {
			list[i].AvatarPath = *req.AvatarPath
		}
		if req.VoiceSamplePath != nil {
			list[i].VoiceSamplePath = *req.VoiceSamplePath
		}
		list[i].LastModified = timestamp()
		if err := s.writeList(list); err != nil {
			return nil, err
		}
		p := list[i]
		return &p, nil
	}
	return nil, services.ErrNotFound
}

// Delete removes a persona. Deleting the active persona deactivates it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.readList()
	kept := list[:0]
	for _, p := range list {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(list) {
		return services.ErrNotFound
	}
	if err := s.writeList(kept); err != nil {
		return err
	}
	if s.readActive() == id {
		return s.writeActive("")
	}
	return nil
}

// Activate marks the persona as the active one.
func (s *Store) Activate(id string) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.readList() {
		if p.ID == id {
			if err := s.writeActive(id); err != nil {
				return nil, err
			}
			persona := p
			return &persona, nil
		}
	}
	return nil, services.ErrNotFound
}

// Deactivate clears the active persona.
func (s *Store) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeActive("")
}

// Active returns the activation state: the active ID and, when it still
// resolves, the persona itself.
func (s *Store) Active() models.ActivePersona {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.readActive()
	if id == "" {
		return models.ActivePersona{}
	}
	for _, p := range s.readList() {
		if p.ID == id {
			persona := p
			return models.ActivePersona{ActivePersonaID: id, Persona: &persona}
		}
	}
	return models.ActivePersona{ActivePersonaID: id}
}

// ActiveSystemPrompt renders the active persona as a chat system prompt, or
// "" when nothing is active.
func (s *Store) ActiveSystemPrompt() string {
	active := s.Active()
	if active.Persona == nil {
		return ""
	}
	prompt := active.Persona.Personality
	if active.Persona.History != "" {
		prompt += "\n\nContext/History: " + active.Persona.History
	}
	return prompt
}

func (s *Store) readList() []models.Persona {
	raw, err := os.ReadFile(s.listPath)
	if err != nil {
		return nil
	}
	var list []models.Persona
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func (s *Store) writeList(list []models.Persona) error {
	if list == nil {
		list = []models.Persona{}
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode personas: %w", err)
	}
	if err := os.WriteFile(s.listPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write personas file: %w", err)
	}
	return nil
}

func (s *Store) readActive() string {
	raw, err := os.ReadFile(s.activePath)
	if err != nil {
		return ""
	}
	var state activeState
	if err := json.Unmarshal(raw, &state); err != nil {
		return ""
	}
	return state.ActiveID
}

func (s *Store) writeActive(id string) error {
	raw, err := json.Marshal(activeState{ActiveID: id})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.activePath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write active persona file: %w", err)
	}
	return nil
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
