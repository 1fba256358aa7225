// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package command implements the command pipeline: input normalization,
// parsing into the closed command set, the injection screen, per-player
// aliases with cycle detection, and dispatch to variant handlers.
package command

import (
	"context"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// Session is the per-command session context. The connection layer fills
// it in from the session registry before dispatch.
type Session struct {
	PlayerID   uuid.UUID
	PlayerName string
	SessionID  ulid.ULID
	RoomID     string
	IsAdmin    bool

	// LastWhisperFrom backs the reply command. Maintained by the chat
	// handlers through Services.Replies.
	LastWhisperFrom string
}

// CombatService is what the command pipeline needs from the combat
// engine. The game package implements it.
type CombatService interface {
	InCombat(playerID uuid.UUID) bool
	Engage(ctx context.Context, attackerID uuid.UUID, targetName string) error
	Disengage(ctx context.Context, playerID uuid.UUID) error
}

// CastingService is what the command pipeline needs from the magic
// engine. The game package implements it.
type CastingService interface {
	BeginCast(ctx context.Context, casterID uuid.UUID, spell, targetName string) error
}

// ReplyTracker remembers the last whisperer per player so reply can
// route. The connection manager owns the state; chat handlers update it.
type ReplyTracker interface {
	SetLastWhisperer(playerID uuid.UUID, fromName string)
	LastWhisperer(playerID uuid.UUID) (string, bool)
}

// RoomOccupants lists scripted NPC names present in a room. The game
// package's NPC service implements it.
type RoomOccupants interface {
	InRoom(roomID string) []string
}

// CorpseIndex lists look-ready labels for decaying containers in a room.
type CorpseIndex interface {
	Labels(roomID string) []string
}

// Services provides collaborator access for handlers. Handlers must not
// retain references beyond the call. NPCs and Corpses are optional;
// handlers treat nil as an empty room.
type Services struct {
	Sessions *core.SessionRegistry
	Events   *core.Broadcaster
	Rooms    *world.Registry
	Players  world.PlayerRepository
	Aliases  *AliasStore
	Mutes    *MuteRegistry
	Combat   CombatService
	Casting  CastingService
	Replies  ReplyTracker
	NPCs     RoomOccupants
	Corpses  CorpseIndex
}
