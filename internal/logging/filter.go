package logging

import (
	"context"
	"log/slog"
	"sync"
)

// ComponentFilterHandler drops records below a level chosen per value of
// the "component" attribute. Components without an override use the
// default level. The wrapped handler should accept every level.
type ComponentFilterHandler struct {
	next      slog.Handler
	state     *filterState
	component string // from WithAttrs, "" if unset
}

type filterState struct {
	mu        sync.RWMutex
	def       slog.Level
	overrides map[string]slog.Level
}

// NewComponentFilterHandler wraps next with a default level.
func NewComponentFilterHandler(next slog.Handler, def slog.Level) *ComponentFilterHandler {
	return &ComponentFilterHandler{
		next:  next,
		state: &filterState{def: def, overrides: map[string]slog.Level{}},
	}
}

// SetLevel overrides the level of one component.
func (h *ComponentFilterHandler) SetLevel(component string, level slog.Level) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.overrides[component] = level
}

// ClearLevel removes the override of one component.
func (h *ComponentFilterHandler) ClearLevel(component string) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	delete(h.state.overrides, component)
}

// Level returns the effective level of a component.
func (h *ComponentFilterHandler) Level(component string) slog.Level {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	if l, ok := h.state.overrides[component]; ok {
		return l
	}
	return h.state.def
}

// DefaultLevel returns the level of components without an override.
func (h *ComponentFilterHandler) DefaultLevel() slog.Level {
	return h.state.def
}

// Enabled reports whether any component could log at level. The per
// component decision happens in Handle once the attributes are known.
func (h *ComponentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.component != "" {
		return level >= h.Level(h.component)
	}
	h.state.mu.RLock()
	lowest := h.state.def
	for _, l := range h.state.overrides {
		lowest = min(lowest, l)
	}
	h.state.mu.RUnlock()
	return level >= lowest
}

func (h *ComponentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	if component == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "component" {
				component = a.Value.String()
				return false
			}
			return true
		})
	}
	if r.Level < h.Level(component) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *ComponentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == "component" {
			c.component = a.Value.String()
		}
	}
	return &c
}

func (h *ComponentFilterHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	return &c
}
