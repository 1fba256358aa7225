// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/mythosmud/mythosmud/internal/core"
)

// DefaultCorpseDecayTicks is how many ticks a corpse container persists
// before the cleanup stage finalizes it.
const DefaultCorpseDecayTicks = 300

// Corpse is a decaying container left where a player died.
type Corpse struct {
	ID          ulid.ULID
	PlayerName  string
	RoomID      string
	CreatedTick uint64
}

// CorpseRegistry tracks corpse containers and finalizes decayed ones
// every MaintenanceCadence ticks.
type CorpseRegistry struct {
	events     *core.Broadcaster
	decayTicks uint64

	mu      sync.Mutex
	corpses []Corpse
}

// NewCorpseRegistry creates the corpse stage. decayTicks 0 takes the
// default.
func NewCorpseRegistry(events *core.Broadcaster, decayTicks uint64) *CorpseRegistry {
	if decayTicks == 0 {
		decayTicks = DefaultCorpseDecayTicks
	}
	return &CorpseRegistry{events: events, decayTicks: decayTicks}
}

// Add registers a corpse container in a room.
func (r *CorpseRegistry) Add(playerName, roomID string, tick uint64) Corpse {
	c := Corpse{
		ID:          ulid.Make(),
		PlayerName:  playerName,
		RoomID:      roomID,
		CreatedTick: tick,
	}
	r.mu.Lock()
	r.corpses = append(r.corpses, c)
	r.mu.Unlock()
	return c
}

// InRoom lists corpses currently in a room.
func (r *CorpseRegistry) InRoom(roomID string) []Corpse {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Corpse
	for _, c := range r.corpses {
		if c.RoomID == roomID {
			out = append(out, c)
		}
	}
	return out
}

// Labels returns look-ready labels for the corpses in a room.
func (r *CorpseRegistry) Labels(roomID string) []string {
	var out []string
	for _, c := range r.InRoom(roomID) {
		out = append(out, "the corpse of "+c.PlayerName)
	}
	return out
}

// Tick is the corpse cleanup stage: every MaintenanceCadence ticks,
// decayed containers emit container_decayed and are removed.
func (r *CorpseRegistry) Tick(ctx context.Context, tick uint64) error {
	if tick%MaintenanceCadence != 0 {
		return nil
	}

	r.mu.Lock()
	var decayed []Corpse
	kept := r.corpses[:0]
	for _, c := range r.corpses {
		if tick >= c.CreatedTick+r.decayTicks {
			decayed = append(decayed, c)
			continue
		}
		kept = append(kept, c)
	}
	r.corpses = kept
	r.mu.Unlock()

	for _, c := range decayed {
		r.events.BroadcastRoom(ctx, c.RoomID, core.EventContainerDecayed, map[string]any{
			"container_id": c.ID.String(),
			"player":       c.PlayerName,
		}, nil)
	}
	return nil
}
