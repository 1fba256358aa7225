// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// Casting defaults.
const (
	DefaultCastTicks = 3
	DefaultSpellCost = 5
)

// casting is one in-progress spell.
type casting struct {
	casterID   uuid.UUID
	casterName string
	spell      string
	targetName string
	roomID     string
	remaining  uint64
}

// CastingEngine advances spell castings on the tick. It implements the
// command pipeline's CastingService. One casting per player; starting a
// new one replaces the old.
type CastingEngine struct {
	sessions *core.SessionRegistry
	events   *core.Broadcaster
	players  world.PlayerRepository

	castTicks uint64
	spellCost int

	mu       sync.Mutex
	castings map[uuid.UUID]*casting
	order    []uuid.UUID
}

// NewCastingEngine creates a casting engine. castTicks <= 0 takes the
// default.
func NewCastingEngine(sessions *core.SessionRegistry, events *core.Broadcaster, players world.PlayerRepository, castTicks uint64) *CastingEngine {
	if castTicks == 0 {
		castTicks = DefaultCastTicks
	}
	return &CastingEngine{
		sessions:  sessions,
		events:    events,
		players:   players,
		castTicks: castTicks,
		spellCost: DefaultSpellCost,
		castings:  make(map[uuid.UUID]*casting),
	}
}

// Casting reports whether the player has a spell in progress.
func (e *CastingEngine) Casting(playerID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.castings[playerID]
	return ok
}

// BeginCast starts a casting for the player, spending MP up front. The
// rest countdown was already cancelled by the dispatcher.
func (e *CastingEngine) BeginCast(ctx context.Context, casterID uuid.UUID, spell, targetName string) error {
	rec := e.sessions.GetSession(casterID)
	if rec == nil {
		return oops.Code(core.CodeSessionMissing).With("player_id", casterID.String()).Errorf("caster has no session")
	}

	p, err := e.players.Get(ctx, casterID)
	if err != nil {
		return err
	}
	if p.MP < e.spellCost {
		return command.ErrBadArguments("spell", "not enough MP")
	}
	p.MP -= e.spellCost
	if err := e.players.Save(ctx, p); err != nil {
		return err
	}

	e.mu.Lock()
	if _, replacing := e.castings[casterID]; !replacing {
		e.order = append(e.order, casterID)
	}
	e.castings[casterID] = &casting{
		casterID:   casterID,
		casterName: rec.DisplayName,
		spell:      spell,
		targetName: targetName,
		roomID:     rec.RoomID,
		remaining:  e.castTicks,
	}
	e.mu.Unlock()

	e.events.BroadcastRoom(ctx, rec.RoomID, core.EventCommandResponse, map[string]any{
		"message": rec.DisplayName + " begins chanting in a forgotten tongue.",
	}, &casterID)
	return nil
}

// Cancel aborts the player's casting, if any.
func (e *CastingEngine) Cancel(playerID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.castings[playerID]; !ok {
		return false
	}
	e.dropLocked(playerID)
	return true
}

// Tick is the casting stage: advance every casting, complete the ones
// that reach zero.
func (e *CastingEngine) Tick(ctx context.Context, _ uint64) error {
	e.mu.Lock()
	var completed []*casting
	for _, id := range e.order {
		c := e.castings[id]
		if c == nil {
			continue
		}
		c.remaining--
		if c.remaining == 0 {
			completed = append(completed, c)
		}
	}
	for _, c := range completed {
		e.dropLocked(c.casterID)
	}
	e.mu.Unlock()

	for _, c := range completed {
		e.complete(ctx, c)
	}
	return nil
}

// complete announces the finished spell. Effect application lives with
// the spell handlers; the engine only times the ritual.
func (e *CastingEngine) complete(ctx context.Context, c *casting) {
	if !e.sessions.IsOnline(c.casterID) {
		return
	}
	msg := "Your " + c.spell + " spell is complete."
	if c.targetName != "" {
		msg = "Your " + c.spell + " spell settles upon " + c.targetName + "."
	}
	e.events.SendPersonal(ctx, c.casterID, core.EventCommandResponse, map[string]any{
		"message": msg,
	})
	e.events.BroadcastRoom(ctx, c.roomID, core.EventCommandResponse, map[string]any{
		"message": c.casterName + " completes an incantation.",
	}, &c.casterID)
}

// dropLocked removes a casting. Caller holds e.mu.
func (e *CastingEngine) dropLocked(playerID uuid.UUID) {
	delete(e.castings, playerID)
	for i, id := range e.order {
		if id == playerID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}
