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

func TestCorpseDecay(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()
	_, tr := w.join(t, "Armitage", "test_room_a_001")

	r := NewCorpseRegistry(w.events, MaintenanceCadence)
	c := r.Add("Whateley", "test_room_a_001", 10)
	require.Len(t, r.InRoom("test_room_a_001"), 1)

	// Not yet decayed.
	require.NoError(t, r.Tick(ctx, MaintenanceCadence))
	assert.Len(t, r.InRoom("test_room_a_001"), 1)
	assert.Empty(t, tr.byType(core.EventContainerDecayed))

	require.NoError(t, r.Tick(ctx, 2*MaintenanceCadence))
	assert.Empty(t, r.InRoom("test_room_a_001"))

	decayed := tr.byType(core.EventContainerDecayed)
	require.Len(t, decayed, 1)
	assert.Equal(t, c.ID.String(), decayed[0].Data["container_id"])
	assert.Equal(t, "Whateley", decayed[0].Data["player"])
}

func TestCorpseCleanupOffCadenceNoop(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	r := NewCorpseRegistry(w.events, 1)
	r.Add("Whateley", "test_room_a_001", 0)

	require.NoError(t, r.Tick(ctx, MaintenanceCadence+1))
	assert.Len(t, r.InRoom("test_room_a_001"), 1)
}
