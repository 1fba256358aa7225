// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/core"
)

func fixedDamage(e *CombatEngine) {
	e.cfg.MinDamage = 10
	e.cfg.MaxDamage = 10
	e.cfg.AttackEveryTicks = 1
}

func TestEngageStartsCombat(t *testing.T) {
	w := newTestWorld(t)
	a, trA := w.join(t, "Armitage", "test_room_a_001")
	b, _ := w.join(t, "Whateley", "test_room_a_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	require.NoError(t, e.Engage(context.Background(), a.ID, "whateley"))

	assert.True(t, e.InCombat(a.ID))
	assert.True(t, e.InCombat(b.ID))
	assert.Len(t, trA.byType(core.EventCombatStarted), 1)
}

func TestEngageUnknownTarget(t *testing.T) {
	w := newTestWorld(t)
	a, _ := w.join(t, "Armitage", "test_room_a_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	err := e.Engage(context.Background(), a.ID, "nobody")
	require.Error(t, err)
	assert.False(t, e.InCombat(a.ID))
}

func TestEngageTargetInOtherRoom(t *testing.T) {
	w := newTestWorld(t)
	a, _ := w.join(t, "Armitage", "test_room_a_001")
	w.join(t, "Whateley", "test_room_b_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	require.Error(t, e.Engage(context.Background(), a.ID, "whateley"))
}

func TestEngageSelfRejected(t *testing.T) {
	w := newTestWorld(t)
	a, _ := w.join(t, "Armitage", "test_room_a_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	require.Error(t, e.Engage(context.Background(), a.ID, "armitage"))
}

func TestCombatTickDealsDamage(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	a, trA := w.join(t, "Armitage", "test_room_a_001")
	b, _ := w.join(t, "Whateley", "test_room_a_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	fixedDamage(e)
	require.NoError(t, e.Engage(ctx, a.ID, "whateley"))

	// Attacker strikes first.
	require.NoError(t, e.Tick(ctx, 1))

	defender, err := w.players.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, defender.HP)
	require.NotEmpty(t, trA.byType(core.EventCombatAttackPersonal))
}

func TestCombatAlternatesTurns(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	a, _ := w.join(t, "Armitage", "test_room_a_001")
	b, _ := w.join(t, "Whateley", "test_room_a_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	fixedDamage(e)
	require.NoError(t, e.Engage(ctx, a.ID, "whateley"))

	require.NoError(t, e.Tick(ctx, 1))
	require.NoError(t, e.Tick(ctx, 2))

	attacker, err := w.players.Get(ctx, a.ID)
	require.NoError(t, err)
	defender, err := w.players.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, attacker.HP)
	assert.Equal(t, 90, defender.HP)
}

func TestCombatMortalWoundEndsFight(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	a, _ := w.join(t, "Armitage", "test_room_a_001")
	b, trB := w.join(t, "Whateley", "test_room_a_001")

	victim, err := w.players.Get(ctx, b.ID)
	require.NoError(t, err)
	victim.HP = 5
	require.NoError(t, w.players.Save(ctx, victim))

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	fixedDamage(e)
	require.NoError(t, e.Engage(ctx, a.ID, "whateley"))
	require.NoError(t, e.Tick(ctx, 1))

	victim, err = w.players.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, victim.HP)
	assert.True(t, victim.MortallyWounded)

	assert.False(t, e.InCombat(a.ID))
	assert.False(t, e.InCombat(b.ID))
	assert.Len(t, trB.byType(core.EventPlayerMortallyWounded), 1)
	assert.NotEmpty(t, trB.byType(core.EventCombatEnded))
}

func TestDisengage(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	a, _ := w.join(t, "Armitage", "test_room_a_001")
	b, _ := w.join(t, "Whateley", "test_room_a_001")

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	require.NoError(t, e.Engage(ctx, a.ID, "whateley"))
	require.NoError(t, e.Disengage(ctx, a.ID))

	assert.False(t, e.InCombat(a.ID))
	assert.False(t, e.InCombat(b.ID))

	require.Error(t, e.Disengage(ctx, a.ID))
}

func TestEngageCancelsRest(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	a, _ := w.join(t, "Armitage", "test_room_a_001")
	w.join(t, "Whateley", "test_room_a_001")

	require.NoError(t, w.sessions.BeginRest(ctx, a.ID, 30))
	require.True(t, w.sessions.RestActive(a.ID))

	e := NewCombatEngine(CombatConfig{}, w.sessions, w.events, w.players)
	require.NoError(t, e.Engage(ctx, a.ID, "whateley"))
	assert.False(t, w.sessions.RestActive(a.ID))
}
