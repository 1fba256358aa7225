// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

// EffectsService is the status-effect tick stage: over-time effects are
// applied and expired effects dropped for every online player.
type EffectsService struct {
	sessions *core.SessionRegistry
	events   *core.Broadcaster
	players  world.PlayerRepository
}

// NewEffectsService creates the status-effect stage.
func NewEffectsService(sessions *core.SessionRegistry, events *core.Broadcaster, players world.PlayerRepository) *EffectsService {
	return &EffectsService{sessions: sessions, events: events, players: players}
}

// Tick processes effects for every online player. Per-player failures
// are logged and skipped; one bad record never stalls the stage.
func (s *EffectsService) Tick(ctx context.Context, tick uint64) error {
	now := time.Now().UTC()
	for _, playerID := range s.sessions.OnlinePlayers() {
		p, err := s.players.Get(ctx, playerID)
		if err != nil {
			slog.Warn("status effects: player record unavailable",
				"player_id", playerID.String(),
				"tick", tick,
				"error", err,
			)
			continue
		}
		if len(p.StatusEffects) == 0 {
			continue
		}

		changed := false
		for _, effect := range p.StatusEffects {
			if effect.Expired(now) {
				continue
			}
			switch effect.Kind {
			case world.EffectDamageOverTime:
				p.HP -= effect.Magnitude
				if p.HP <= 0 {
					p.HP = 0
					p.MortallyWounded = true
					p.Position = world.PositionDead
				}
				changed = true
			case world.EffectHealOverTime:
				if p.HP < p.MaxHP && !p.Dead {
					p.HP = min(p.HP+effect.Magnitude, p.MaxHP)
					changed = true
				}
			}
		}

		expired := p.PruneEffects(now)
		if len(expired) > 0 {
			changed = true
			for _, name := range expired {
				s.events.SendPersonal(ctx, playerID, core.EventCommandResponse, map[string]any{
					"message": "The " + name + " effect fades.",
				})
			}
		}

		if changed {
			if err := s.players.Save(ctx, p); err != nil {
				slog.Error("status effects: save failed",
					"player_id", playerID.String(),
					"tick", tick,
					"error", err,
				)
			}
		}
	}
	return nil
}
