// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/command"
)

func TestWhoListsOnlinePlayers(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")
	f.join("Bob", "test_room_b_001")
	f.join("Carol", "test_room_b_001")

	res, err := f.run(alice, "who")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "3 dreamers online:")
	assert.Contains(t, res.Text, "Alice")
	assert.Contains(t, res.Text, "Bob")
	assert.Contains(t, res.Text, "Carol")
}

func TestWhoWithGlobPattern(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")
	f.join("Albert", "test_room_b_001")
	f.join("Bob", "test_room_b_001")

	res, err := f.run(alice, "who al*")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "2 dreamers online:")
	assert.Contains(t, res.Text, "Albert")
	assert.NotContains(t, res.Text, "Bob")
}

func TestWhoNoMatches(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "who z*")
	require.NoError(t, err)
	assert.Equal(t, "No one matching 'z*' is online.", res.Text)
}

func TestWhoBadPattern(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	_, err := f.run(alice, "who [")
	require.Error(t, err)
	assert.Equal(t, command.CodeBadArguments, errCode(err))
}

func TestStatusReportsVitals(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")
	alice.HP = 73
	alice.Lucidity = 88
	alice.DP = 4
	require.NoError(t, f.players.Save(context.Background(), alice))

	res, err := f.run(alice, "status")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "HP: 73/100")
	assert.Contains(t, res.Text, "MP: 50/50")
	assert.Contains(t, res.Text, "Lucidity: 88")
	assert.Contains(t, res.Text, "DP: 4")
	assert.Contains(t, res.Text, "Location: Room A")
}

func TestInventory(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "inventory")
	require.NoError(t, err)
	assert.Equal(t, "You are carrying nothing.", res.Text)

	alice.Inventory = []string{"a silver key", "a worn journal"}
	require.NoError(t, f.players.Save(context.Background(), alice))

	res, err = f.run(alice, "inventory")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "a silver key")
	assert.Contains(t, res.Text, "a worn journal")
}

func TestHelpHidesAdminCommands(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "help")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "say")
	assert.Contains(t, res.Text, "look")
	assert.NotContains(t, res.Text, "teleport")
	assert.NotContains(t, res.Text, "add_admin")
}

func TestHelpShowsAdminCommandsToAdmins(t *testing.T) {
	f := newFixture(t)
	admin, _ := f.join("Keeper", "test_room_a_001")
	admin.Admin = true
	require.NoError(t, f.players.Save(context.Background(), admin))

	res, err := f.run(admin, "help")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "teleport")
}

func TestHelpTopic(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "help whisper")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Usage: whisper <player> <message>")
}

func TestHelpUnknownTopic(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "help summonshoggoth")
	require.NoError(t, err)
	assert.Equal(t, "No help available for 'summonshoggoth'.", res.Text)
}

func TestHelpAdminTopicHiddenFromPlayers(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.join("Alice", "test_room_a_001")

	res, err := f.run(alice, "help goto")
	require.NoError(t, err)
	assert.Equal(t, "No help available for 'goto'.", res.Text)
}
