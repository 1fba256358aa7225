// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package core contains the session registry, event broadcaster, and the
// envelope types shared by the command pipeline and the game loop.
package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event sent to clients.
type EventType string

// The closed set of event types clients can receive.
const (
	EventCommandResponse           EventType = "command_response"
	EventGameTick                  EventType = "game_tick"
	EventCombatStarted             EventType = "combat_started"
	EventCombatAttack              EventType = "combat_attack"
	EventCombatAttackPersonal      EventType = "combat_attack_personal"
	EventCombatDeath               EventType = "combat_death"
	EventCombatEnded               EventType = "combat_ended"
	EventCombatError               EventType = "combat_error"
	EventPlayerMortallyWounded     EventType = "player_mortally_wounded"
	EventPlayerMortallyWoundedRoom EventType = "player_mortally_wounded_room"
	EventPlayerDied                EventType = "player_died"
	EventPlayerDiedRoom            EventType = "player_died_room"
	EventPlayerRespawned           EventType = "player_respawned"
	EventPlayerRespawnedRoom       EventType = "player_respawned_room"
	EventPlayerDPDecay             EventType = "player_dp_decay"
	EventIntentionalDisconnect     EventType = "intentional_disconnect"
	EventContainerDecayed          EventType = "container_decayed"
)

// Routing selects the recipients of an event. Exactly one of Player,
// Room, or Global should be set; Exclude applies to room routing only.
type Routing struct {
	Player  *uuid.UUID
	Room    string
	Exclude *uuid.UUID
	Global  bool
}

// RouteToPlayer builds a single-player routing descriptor.
func RouteToPlayer(playerID uuid.UUID) Routing {
	return Routing{Player: &playerID}
}

// RouteToRoom builds a room routing descriptor. exclude may be nil.
func RouteToRoom(roomID string, exclude *uuid.UUID) Routing {
	return Routing{Room: roomID, Exclude: exclude}
}

// RouteGlobal builds a routing descriptor addressing every session.
func RouteGlobal() Routing {
	return Routing{Global: true}
}

// Event is an immutable envelope produced by the broadcaster. Sequence is
// assigned monotonically at build time and never reused.
type Event struct {
	Type      EventType
	Data      map[string]any
	Timestamp time.Time
	Sequence  uint64
	Routing   Routing
}

// Frame is the JSON shape delivered to clients.
type Frame struct {
	EventType EventType      `json:"event_type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Sequence  uint64         `json:"sequence"`
	PlayerID  string         `json:"player_id,omitempty"`
	RoomID    string         `json:"room_id,omitempty"`
}

// Frame converts the event to its client wire shape.
func (e Event) Frame() Frame {
	f := Frame{
		EventType: e.Type,
		Data:      e.Data,
		Timestamp: e.Timestamp,
		Sequence:  e.Sequence,
		RoomID:    e.Routing.Room,
	}
	if e.Routing.Player != nil {
		f.PlayerID = e.Routing.Player.String()
	}
	return f
}
