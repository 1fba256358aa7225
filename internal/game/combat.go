// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// Combat tuning defaults.
const (
	DefaultAttackEveryTicks = 2
	DefaultMinDamage        = 3
	DefaultMaxDamage        = 10
)

// CombatConfig configures the combat engine. Zero values take defaults.
type CombatConfig struct {
	AttackEveryTicks uint64
	MinDamage        int
	MaxDamage        int
}

func (c CombatConfig) withDefaults() CombatConfig {
	if c.AttackEveryTicks == 0 {
		c.AttackEveryTicks = DefaultAttackEveryTicks
	}
	if c.MinDamage <= 0 {
		c.MinDamage = DefaultMinDamage
	}
	if c.MaxDamage < c.MinDamage {
		c.MaxDamage = DefaultMaxDamage
	}
	return c
}

type combatant struct {
	id   uuid.UUID
	name string
}

// encounter is one active fight. Attacks resolve on the combat tick in
// encounter registration order, participants alternating turns.
type encounter struct {
	participants [2]combatant
	roomID       string
	startedTick  uint64
	turn         int // index into participants of the next striker
}

// CombatEngine runs encounters. It implements the command pipeline's
// CombatService and the session registry's CombatGuard.
type CombatEngine struct {
	cfg      CombatConfig
	sessions *core.SessionRegistry
	events   *core.Broadcaster
	players  world.PlayerRepository

	mu         sync.Mutex
	encounters []*encounter // registration order
	byPlayer   map[uuid.UUID]*encounter
	rng        *rand.Rand
}

// NewCombatEngine creates a combat engine.
func NewCombatEngine(cfg CombatConfig, sessions *core.SessionRegistry, events *core.Broadcaster, players world.PlayerRepository) *CombatEngine {
	return &CombatEngine{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		events:   events,
		players:  players,
		byPlayer: make(map[uuid.UUID]*encounter),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// InCombat reports whether the player is in an active encounter.
func (e *CombatEngine) InCombat(playerID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.byPlayer[playerID]
	return ok
}

// Engage starts an encounter between the attacker and a named target in
// the same room. Rest countdowns of both participants are cancelled.
func (e *CombatEngine) Engage(ctx context.Context, attackerID uuid.UUID, targetName string) error {
	attacker := e.sessions.GetSession(attackerID)
	if attacker == nil {
		return oops.Code(core.CodeSessionMissing).With("player_id", attackerID.String()).Errorf("attacker has no session")
	}

	target := e.findInRoom(attacker.RoomID, targetName)
	if target == nil || target.PlayerID == attackerID {
		return command.ErrTargetNotFound(targetName)
	}

	e.mu.Lock()
	if _, fighting := e.byPlayer[attackerID]; fighting {
		e.mu.Unlock()
		return command.ErrBadArguments("target", "you are already fighting")
	}
	if _, fighting := e.byPlayer[target.PlayerID]; fighting {
		e.mu.Unlock()
		return command.ErrBadArguments("target", "they are already fighting")
	}

	enc := &encounter{
		participants: [2]combatant{
			{id: attackerID, name: attacker.DisplayName},
			{id: target.PlayerID, name: target.DisplayName},
		},
		roomID: attacker.RoomID,
	}
	e.encounters = append(e.encounters, enc)
	e.byPlayer[attackerID] = enc
	e.byPlayer[target.PlayerID] = enc
	e.mu.Unlock()

	e.sessions.CancelRest(attackerID, "combat")
	e.sessions.CancelRest(target.PlayerID, "combat")

	e.events.BroadcastRoom(ctx, enc.roomID, core.EventCombatStarted, map[string]any{
		"attacker": attacker.DisplayName,
		"defender": target.DisplayName,
	}, nil)
	return nil
}

// Disengage removes the player's encounter, fleeing the fight.
func (e *CombatEngine) Disengage(ctx context.Context, playerID uuid.UUID) error {
	e.mu.Lock()
	enc, ok := e.byPlayer[playerID]
	if !ok {
		e.mu.Unlock()
		return command.ErrNotInCombat()
	}
	e.removeLocked(enc)
	e.mu.Unlock()

	e.events.BroadcastRoom(ctx, enc.roomID, core.EventCombatEnded, map[string]any{
		"reason":   "fled",
		"fighters": []string{enc.participants[0].name, enc.participants[1].name},
	}, nil)
	return nil
}

// Tick is the combat stage: every encounter still alive resolves one
// scheduled attack when its cadence comes due.
func (e *CombatEngine) Tick(ctx context.Context, tick uint64) error {
	e.mu.Lock()
	if e.encounters == nil {
		e.mu.Unlock()
		return nil
	}
	snapshot := make([]*encounter, len(e.encounters))
	copy(snapshot, e.encounters)
	e.mu.Unlock()

	for _, enc := range snapshot {
		e.mu.Lock()
		if enc.startedTick == 0 {
			enc.startedTick = tick
		}
		due := (tick-enc.startedTick)%e.cfg.AttackEveryTicks == 0
		_, stillActive := e.byPlayer[enc.participants[0].id]
		e.mu.Unlock()
		if !stillActive || !due {
			continue
		}
		e.resolveAttack(ctx, enc, tick)
	}
	return nil
}

// resolveAttack executes one strike and handles a mortal wound.
func (e *CombatEngine) resolveAttack(ctx context.Context, enc *encounter, tick uint64) {
	e.mu.Lock()
	striker := enc.participants[enc.turn]
	victim := enc.participants[1-enc.turn]
	enc.turn = 1 - enc.turn
	damage := e.cfg.MinDamage + e.rng.Intn(e.cfg.MaxDamage-e.cfg.MinDamage+1)
	e.mu.Unlock()

	// A participant who went offline ends the fight.
	if !e.sessions.IsOnline(striker.id) || !e.sessions.IsOnline(victim.id) {
		e.endEncounter(ctx, enc, "participant left")
		return
	}

	p, err := e.players.Get(ctx, victim.id)
	if err != nil {
		e.events.SendPersonal(ctx, striker.id, core.EventCombatError, map[string]any{
			"message": "Your blow passes through empty air.",
		})
		e.endEncounter(ctx, enc, "record unavailable")
		return
	}

	p.HP -= damage
	mortal := p.HP <= 0
	if mortal {
		p.HP = 0
		p.MortallyWounded = true
		p.Position = world.PositionDead
	}
	if err := e.players.Save(ctx, p); err != nil {
		e.events.SendPersonal(ctx, striker.id, core.EventCombatError, map[string]any{
			"message": "The strike fails to land.",
		})
		return
	}

	attackData := map[string]any{
		"attacker": striker.name,
		"defender": victim.name,
		"damage":   damage,
		"tick":     tick,
	}
	e.events.SendPersonal(ctx, striker.id, core.EventCombatAttackPersonal, attackData)
	e.events.SendPersonal(ctx, victim.id, core.EventCombatAttackPersonal, attackData)
	e.events.BroadcastRoom(ctx, enc.roomID, core.EventCombatAttack, attackData, nil)

	if mortal {
		e.events.SendPersonal(ctx, victim.id, core.EventPlayerMortallyWounded, map[string]any{
			"message": "You collapse, mortally wounded.",
		})
		e.events.BroadcastRoom(ctx, enc.roomID, core.EventPlayerMortallyWoundedRoom, map[string]any{
			"player": victim.name,
		}, &victim.id)
		e.endEncounter(ctx, enc, "mortal wound")
	}
}

func (e *CombatEngine) endEncounter(ctx context.Context, enc *encounter, reason string) {
	e.mu.Lock()
	if _, active := e.byPlayer[enc.participants[0].id]; !active {
		e.mu.Unlock()
		return
	}
	e.removeLocked(enc)
	e.mu.Unlock()

	e.events.BroadcastRoom(ctx, enc.roomID, core.EventCombatEnded, map[string]any{
		"reason":   reason,
		"fighters": []string{enc.participants[0].name, enc.participants[1].name},
	}, nil)
}

// removeLocked drops the encounter from both indexes. Caller holds e.mu.
func (e *CombatEngine) removeLocked(enc *encounter) {
	delete(e.byPlayer, enc.participants[0].id)
	delete(e.byPlayer, enc.participants[1].id)
	for i, other := range e.encounters {
		if other == enc {
			e.encounters = append(e.encounters[:i], e.encounters[i+1:]...)
			break
		}
	}
}

// findInRoom resolves a display name to a session in the given room.
func (e *CombatEngine) findInRoom(roomID, name string) *core.SessionRecord {
	for _, rec := range e.sessions.ListSessions() {
		if rec.RoomID == roomID && strings.EqualFold(rec.DisplayName, name) {
			return rec
		}
	}
	return nil
}
