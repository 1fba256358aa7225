// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// Handler executes one command variant. Handlers emit events through the
// services and return the player-visible result; user-input and state
// errors come back as oops errors and are mapped by PlayerMessage.
type Handler func(ctx context.Context, cmd Command, sess *Session, svc *Services) (*Result, error)

// Entry is one row of the variant→handler table.
type Entry struct {
	Verb    Verb
	Handler Handler

	// AdminOnly commands are rejected for non-admin sessions before the
	// handler runs.
	AdminOnly bool

	// CancelsRest marks variants that interrupt a running rest countdown
	// (movement, combat entry, spellcasting). Chat and inspection
	// commands leave the countdown alone.
	CancelsRest bool

	Help  string // one-line description
	Usage string // usage pattern
}

// Result is what a handler hands back to the dispatcher.
type Result struct {
	// Text is the player-visible command response. Empty means the
	// handler already said everything it needed through events.
	Text string

	// Logout directs the connection layer to close the player's
	// transports after the response is delivered.
	Logout bool
}

// Registry is the static variant→handler table. Registration happens once
// at startup; lookup is read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[Verb]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Verb]Entry)}
}

// Register adds an entry. Re-registering a variant overwrites with a
// warning; the closed command set makes that a wiring bug, not a feature.
func (r *Registry) Register(e Entry) error {
	if e.Handler == nil {
		return oops.Errorf("handler for %q is nil", e.Verb)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.Verb]; ok {
		slog.Warn("overwriting command handler", "verb", string(e.Verb))
	}
	r.entries[e.Verb] = e
	return nil
}

// Get retrieves the entry for a variant.
func (r *Registry) Get(verb Verb) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[verb]
	return e, ok
}

// All returns a copy of every entry.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}
