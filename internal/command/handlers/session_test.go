// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

func TestQuitMarksIntentionalAndLogsOut(t *testing.T) {
	f := newFixture(t)
	alice, tr := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "quit")
	require.NoError(t, err)
	assert.True(t, res.Logout)
	assert.NotEmpty(t, res.Text)

	// The connection layer detaches after closing; the intentional mark
	// removes the session with no grace period.
	f.sessions.Detach(alice.ID, tr.ID(), "logout")
	assert.Nil(t, f.sessions.GetSession(alice.ID))
}

func TestRestStartsCountdown(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "rest")
	require.NoError(t, err)
	assert.Equal(t, "You settle down to rest...", res.Text)
	assert.True(t, f.sessions.RestActive(alice.ID))

	rec := f.sessions.GetSession(alice.ID)
	require.NotNil(t, rec)
	assert.Equal(t, core.PositionSitting, rec.Position)
}

func TestRestTwice(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	_, err := f.run(alice, "rest")
	require.NoError(t, err)

	res, err := f.run(alice, "rest")
	require.NoError(t, err)
	assert.Equal(t, "You are already resting.", res.Text)
}

func TestRestBlockedInCombat(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")
	f.combat.fighting[alice.ID] = true

	_, err := f.run(alice, "rest")
	require.Error(t, err)
	assert.Equal(t, command.CodeCannotRestInCombat, errCode(err))
}

func TestRestLocationCompletesInstantly(t *testing.T) {
	f := newFixture(t)
	alice, tr := f.join("Alice", "test_room_rest_001")

	_, err := f.run(alice, "rest")
	require.NoError(t, err)

	eventually(t, func() bool {
		return f.sessions.GetSession(alice.ID) == nil
	}, "rest-location rest should complete and remove the session")
	assert.True(t, tr.hasEvent(core.EventIntentionalDisconnect))
}

func TestStandAndSit(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "sit")
	require.NoError(t, err)
	assert.Equal(t, "You sit down.", res.Text)

	stored, err := f.players.Get(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, world.PositionSitting, stored.Position)

	rec := f.sessions.GetSession(alice.ID)
	require.NotNil(t, rec)
	assert.Equal(t, core.PositionSitting, rec.Position)

	res, err = f.run(alice, "stand")
	require.NoError(t, err)
	assert.Equal(t, "You stand up.", res.Text)

	stored, err = f.players.Get(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, world.PositionStanding, stored.Position)
}
