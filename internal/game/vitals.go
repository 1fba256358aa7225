// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// Vitals tuning defaults.
const (
	// DPDeathThreshold: a mortally wounded player whose dream presence
	// falls to this value or below dies.
	DPDeathThreshold = -10

	// MPRegenInterval: online players regain 1 MP every this many ticks.
	MPRegenInterval = 5

	// LucidityDriftInterval: lucidity drifts 1 point toward baseline
	// every this many ticks.
	LucidityDriftInterval = 10

	// LucidityFluxChance: per-tick chance of losing a lucidity point in a
	// sanity-draining room.
	LucidityFluxChance = 0.05

	// DefaultRespawnDelayTicks: ticks a dead player waits before respawn.
	DefaultRespawnDelayTicks = 30
)

// VitalsService is the decay/death/regen tick stage: DP decay for the
// mortally wounded, death and relocation to limbo, respawn, passive
// lucidity flux, and MP regeneration.
type VitalsService struct {
	sessions *core.SessionRegistry
	events   *core.Broadcaster
	players  world.PlayerRepository
	rooms    *world.Registry
	corpses  *CorpseRegistry // optional

	respawnDelay uint64

	mu        sync.Mutex
	deadSince map[uuid.UUID]uint64
	rng       *rand.Rand
}

// NewVitalsService creates the vitals stage. corpses may be nil;
// respawnDelay 0 takes the default.
func NewVitalsService(sessions *core.SessionRegistry, events *core.Broadcaster, players world.PlayerRepository, rooms *world.Registry, corpses *CorpseRegistry, respawnDelay uint64) *VitalsService {
	if respawnDelay == 0 {
		respawnDelay = DefaultRespawnDelayTicks
	}
	return &VitalsService{
		sessions:     sessions,
		events:       events,
		players:      players,
		rooms:        rooms,
		corpses:      corpses,
		respawnDelay: respawnDelay,
		deadSince:    make(map[uuid.UUID]uint64),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tick runs one vitals pass over the online player set.
func (s *VitalsService) Tick(ctx context.Context, tick uint64) error {
	for _, playerID := range s.sessions.OnlinePlayers() {
		p, err := s.players.Get(ctx, playerID)
		if err != nil {
			slog.Warn("vitals: player record unavailable",
				"player_id", playerID.String(),
				"tick", tick,
				"error", err,
			)
			continue
		}

		switch {
		case p.Dead:
			s.tendDead(ctx, p, tick)
		case p.MortallyWounded:
			s.decayDP(ctx, p, tick)
		default:
			s.passives(ctx, p, tick)
		}
	}
	return nil
}

// decayDP drains one dream presence point and kills at the threshold.
func (s *VitalsService) decayDP(ctx context.Context, p *world.Player, tick uint64) {
	p.DP--
	s.events.SendPersonal(ctx, p.ID, core.EventPlayerDPDecay, map[string]any{
		"dp": p.DP,
	})

	if p.DP <= DPDeathThreshold {
		s.die(ctx, p, tick)
		return
	}
	s.save(ctx, p, tick, "dp decay")
}

// die marks the player dead, announces it, registers the corpse, and
// moves the player to limbo.
func (s *VitalsService) die(ctx context.Context, p *world.Player, tick uint64) {
	deathRoom := p.RoomID
	p.Dead = true
	p.MortallyWounded = false
	p.Position = world.PositionDead

	s.mu.Lock()
	s.deadSince[p.ID] = tick
	s.mu.Unlock()

	s.events.SendPersonal(ctx, p.ID, core.EventPlayerDied, map[string]any{
		"message": "Your presence in the dreamlands dissolves.",
	})
	s.events.BroadcastRoom(ctx, deathRoom, core.EventPlayerDiedRoom, map[string]any{
		"player": p.Name,
	}, &p.ID)

	if s.corpses != nil {
		s.corpses.Add(p.Name, deathRoom, tick)
	}

	s.moveToLimbo(p)
	s.save(ctx, p, tick, "death")
}

// tendDead keeps dead players parked in limbo and respawns them once the
// delay elapses.
func (s *VitalsService) tendDead(ctx context.Context, p *world.Player, tick uint64) {
	if p.RoomID != s.rooms.Limbo() {
		s.moveToLimbo(p)
		s.save(ctx, p, tick, "relocate dead")
	}

	s.mu.Lock()
	since, known := s.deadSince[p.ID]
	if !known {
		// Death predates this process; start the clock now.
		s.deadSince[p.ID] = tick
		s.mu.Unlock()
		return
	}
	due := tick >= since+s.respawnDelay
	if due {
		delete(s.deadSince, p.ID)
	}
	s.mu.Unlock()

	if due {
		s.respawn(ctx, p, tick)
	}
}

// respawn restores vitals and wakes the player in limbo.
func (s *VitalsService) respawn(ctx context.Context, p *world.Player, tick uint64) {
	p.Dead = false
	p.MortallyWounded = false
	p.HP = p.MaxHP
	p.MP = p.MaxMP
	p.DP = 0
	p.Position = world.PositionStanding

	s.save(ctx, p, tick, "respawn")

	s.events.SendPersonal(ctx, p.ID, core.EventPlayerRespawned, map[string]any{
		"message": "You awaken, whole again, in a place between places.",
		"room_id": p.RoomID,
	})
	s.events.BroadcastRoom(ctx, p.RoomID, core.EventPlayerRespawnedRoom, map[string]any{
		"player": p.Name,
	}, &p.ID)
}

// passives applies lucidity flux and MP regeneration.
func (s *VitalsService) passives(ctx context.Context, p *world.Player, tick uint64) {
	changed := false

	if room, ok := s.rooms.Get(p.RoomID); ok && room.SanityDrain && p.Lucidity > 0 {
		s.mu.Lock()
		flux := s.rng.Float64() < LucidityFluxChance
		s.mu.Unlock()
		if flux {
			p.Lucidity--
			changed = true
		}
	} else if p.Lucidity < world.DefaultLucidity && tick%LucidityDriftInterval == 0 {
		p.Lucidity++
		changed = true
	}

	if tick%MPRegenInterval == 0 && p.MP < p.MaxMP {
		p.MP++
		changed = true
	}

	if changed {
		s.save(ctx, p, tick, "passives")
	}
}

// moveToLimbo re-homes the player and their room subscription. A missing
// limbo room is a content error; the move is skipped with a log.
func (s *VitalsService) moveToLimbo(p *world.Player) {
	limbo := s.rooms.Limbo()
	if _, ok := s.rooms.Get(limbo); !ok {
		slog.Error("limbo room is not registered; dead player left in place",
			"player_id", p.ID.String(),
			"limbo", limbo,
		)
		return
	}
	p.RoomID = limbo
	p.Pose = ""
	if err := s.sessions.SetRoom(p.ID, limbo); err != nil {
		slog.Warn("vitals: room move failed",
			"player_id", p.ID.String(),
			"room_id", limbo,
			"error", err,
		)
	}
}

func (s *VitalsService) save(ctx context.Context, p *world.Player, tick uint64, op string) {
	if err := s.players.Save(ctx, p); err != nil {
		slog.Error("vitals: save failed",
			"player_id", p.ID.String(),
			"tick", tick,
			"op", op,
			"error", err,
		)
	}
}
