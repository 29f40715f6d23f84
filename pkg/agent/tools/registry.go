// Package tools holds the agent tool registry: small named operations the
// ReAct loop can invoke. Tools never return Go errors — failures are
// descriptive strings fed back to the agent as observations.
package tools

import (
	"context"
	"strings"
)

// Tool is one registered agent capability.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, input string) string
}

// Registry is an ordered, case-insensitive tool lookup.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the tool but keeps
// its original position.
func (r *Registry) Register(t Tool) {
	key := strings.ToLower(t.Name)
	if _, exists := r.tools[key]; !exists {
		r.order = append(r.order, key)
	}
	r.tools[key] = t
}

// Get resolves a tool by name, ignoring case.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, key := range r.order {
		names = append(names, r.tools[key].Name)
	}
	return names
}

// Describe renders the "- Name: description" list shown to the agent.
func (r *Registry) Describe() string {
	if len(r.order) == 0 {
		return "No tools available."
	}
	lines := make([]string, 0, len(r.order))
	for _, key := range r.order {
		t := r.tools[key]
		lines = append(lines, "- "+t.Name+": "+t.Description)
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
