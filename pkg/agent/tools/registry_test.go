package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "Calculator", Description: "math", Run: func(context.Context, string) string { return "ok" }})

	for _, name := range []string{"Calculator", "calculator", "CALCULATOR", "  calculator "} {
		tool, ok := r.Get(name)
		require.True(t, ok, "lookup %q", name)
		assert.Equal(t, "Calculator", tool.Name)
	}

	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	run := func(context.Context, string) string { return "" }
	r.Register(Tool{Name: "B", Description: "second", Run: run})
	r.Register(Tool{Name: "A", Description: "first", Run: run})
	r.Register(Tool{Name: "C", Description: "third", Run: run})

	assert.Equal(t, []string{"B", "A", "C"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestRegistryReRegisterKeepsPosition(t *testing.T) {
	r := NewRegistry()
	run := func(context.Context, string) string { return "" }
	r.Register(Tool{Name: "A", Run: run})
	r.Register(Tool{Name: "B", Run: run})
	r.Register(Tool{Name: "A", Description: "updated", Run: run})

	assert.Equal(t, []string{"A", "B"}, r.Names())
	tool, _ := r.Get("a")
	assert.Equal(t, "updated", tool.Description)
}

func TestRegistryDescribe(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "No tools available.", r.Describe())

	run := func(context.Context, string) string { return "" }
	r.Register(Tool{Name: "Echo", Description: "repeats input", Run: run})
	r.Register(Tool{Name: "Noop", Description: "does nothing", Run: run})

	assert.Equal(t, "- Echo: repeats input\n- Noop: does nothing", r.Describe())
}
