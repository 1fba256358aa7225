// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayerDefaults(t *testing.T) {
	p := NewPlayer("Armitage", "arkham_room_library_001")

	assert.Equal(t, DefaultMaxHP, p.HP)
	assert.Equal(t, DefaultMaxHP, p.MaxHP)
	assert.Equal(t, DefaultMaxMP, p.MP)
	assert.Equal(t, DefaultLucidity, p.Lucidity)
	assert.Equal(t, 0, p.DP)
	assert.Equal(t, PositionStanding, p.Position)
	assert.False(t, p.Admin)
	assert.False(t, p.Dead)
}

func TestPruneEffects(t *testing.T) {
	now := time.Now()
	p := NewPlayer("Armitage", "arkham_room_library_001")
	p.StatusEffects = []StatusEffect{
		{Name: "dazed", ExpiresAt: now.Add(-time.Second)},
		{Name: "warded", ExpiresAt: now.Add(time.Minute)},
	}

	removed := p.PruneEffects(now)
	assert.Equal(t, []string{"dazed"}, removed)
	require.Len(t, p.StatusEffects, 1)
	assert.Equal(t, "warded", p.StatusEffects[0].Name)
}

func TestApplyEffectRefreshes(t *testing.T) {
	now := time.Now()
	p := NewPlayer("Armitage", "arkham_room_library_001")

	p.ApplyEffect("dazed", time.Minute, now)
	p.ApplyEffect("dazed", time.Hour, now)

	require.Len(t, p.StatusEffects, 1)
	assert.True(t, p.HasEffect("dazed", now))
	assert.Equal(t, now.Add(time.Hour), p.StatusEffects[0].ExpiresAt)
}

func TestHasEffectIgnoresExpired(t *testing.T) {
	now := time.Now()
	p := NewPlayer("Armitage", "arkham_room_library_001")
	p.StatusEffects = []StatusEffect{
		{Name: "dazed", ExpiresAt: now.Add(-time.Second)},
	}

	assert.False(t, p.HasEffect("dazed", now))
}
