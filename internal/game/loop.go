// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"github.com/mythosmud/mythosmud/internal/core"
)

// LoopDeps are the simulation services the standard stage order drives.
type LoopDeps struct {
	Sessions *core.SessionRegistry
	Events   *core.Broadcaster
	Effects  *EffectsService
	Combat   *CombatEngine
	Casting  *CastingEngine
	Vitals   *VitalsService
	NPCs     *NPCService
	Corpses  *CorpseRegistry
}

// NewLoop builds the scheduler with the fixed stage order. The global
// tick counter advances before the first stage, so every stage of tick N
// observes CurrentTick() == N; the game_tick broadcast is emitted by the
// scheduler after the last stage.
func NewLoop(cfg SchedulerConfig, deps LoopDeps) *Scheduler {
	stages := []Stage{
		{Name: "status_effects", Fn: deps.Effects.Tick},
		{Name: "combat", Fn: deps.Combat.Tick},
		{Name: "casting", Fn: deps.Casting.Tick},
		{Name: "vitals", Fn: deps.Vitals.Tick},
		{Name: "npc_maintenance", Fn: deps.NPCs.Tick},
		{Name: "corpse_cleanup", Fn: deps.Corpses.Tick},
	}
	return NewScheduler(cfg, deps.Sessions, deps.Events, stages)
}
