package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Engines is the fast/deep engine pair. Fast handles routing, tools, and
// interactive chat; deep (optional) handles heavier reasoning and serves as
// the fallback when fast is down, and vice versa.
type Engines struct {
	fast *Client
	deep *Client
}

// NewEngines pairs the required fast engine with an optional deep engine
// (nil when not configured).
func NewEngines(fast, deep *Client) *Engines {
	return &Engines{fast: fast, deep: deep}
}

// Fast returns the fast engine.
func (e *Engines) Fast() *Client { return e.fast }

// Deep returns the deep engine, or nil when not configured.
func (e *Engines) Deep() *Client { return e.deep }

// Pick resolves an engine by name. Empty selects the fast engine.
func (e *Engines) Pick(name string) (*Client, error) {
	switch name {
	case "", "fast":
		return e.fast, nil
	case "deep":
		if e.deep == nil {
			return nil, fmt.Errorf("deep engine is not configured")
		}
		return e.deep, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// alternate returns the other configured engine, or nil.
func (e *Engines) alternate(primary *Client) *Client {
	if primary == e.fast {
		return e.deep
	}
	return e.fast
}

// shouldFallback reports whether the alternate engine is worth trying:
// the primary answered with an HTTP error or could not be reached at all.
func shouldFallback(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) || isTransient(err)
}

// Chat runs a chat completion on the named engine, falling back to the other
// configured engine when the primary cannot serve. The returned engine tag is
// the serving engine's name, suffixed "-fallback" when the alternate answered.
func (e *Engines) Chat(ctx context.Context, name string, messages []Message, opts Options) (string, string, error) {
	primary, err := e.Pick(name)
	if err != nil {
		return "", "", err
	}
	text, perr := primary.Chat(ctx, messages, opts)
	if perr == nil {
		return text, primary.Name(), nil
	}
	alt := e.alternate(primary)
	if alt == nil || !shouldFallback(perr) {
		return "", "", perr
	}
	slog.Warn("Primary engine failed, trying fallback",
		"primary", primary.Name(), "fallback", alt.Name(), "error", perr)
	text, aerr := alt.Chat(ctx, messages, opts)
	if aerr != nil {
		return "", "", fmt.Errorf("%w: %s: %v; %s: %v",
			ErrUnavailable, primary.Name(), perr, alt.Name(), aerr)
	}
	return text, alt.Name() + "-fallback", nil
}

// Bound is an Engines view fixed to one engine choice. It satisfies the
// single-engine Completer/Chatter interfaces the agents and the verification
// chain consume, while keeping the pair's fallback behavior.
type Bound struct {
	engines *Engines
	name    string
}

// Bind fixes the engine choice. Empty name selects the fast engine.
func (e *Engines) Bind(name string) *Bound {
	return &Bound{engines: e, name: name}
}

// Complete runs a completion on the bound engine, discarding the engine tag.
func (b *Bound) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	text, _, err := b.engines.Complete(ctx, b.name, prompt, opts)
	return text, err
}

// Chat runs a chat completion on the bound engine, discarding the engine tag.
func (b *Bound) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	text, _, err := b.engines.Chat(ctx, b.name, messages, opts)
	return text, err
}

// Complete runs a text completion on the named engine with the same fallback
// behavior as Chat.
func (e *Engines) Complete(ctx context.Context, name string, prompt string, opts Options) (string, string, error) {
	primary, err := e.Pick(name)
	if err != nil {
		return "", "", err
	}
	text, perr := primary.Complete(ctx, prompt, opts)
	if perr == nil {
		return text, primary.Name(), nil
	}
	alt := e.alternate(primary)
	if alt == nil || !shouldFallback(perr) {
		return "", "", perr
	}
	slog.Warn("Primary engine failed, trying fallback",
		"primary", primary.Name(), "fallback", alt.Name(), "error", perr)
	text, aerr := alt.Complete(ctx, prompt, opts)
	if aerr != nil {
		return "", "", fmt.Errorf("%w: %s: %v; %s: %v",
			ErrUnavailable, primary.Name(), perr, alt.Name(), aerr)
	}
	return text, alt.Name() + "-fallback", nil
}
