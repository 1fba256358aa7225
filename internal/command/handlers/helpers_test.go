// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

const testZone = `
zone: test
rooms:
  - id: test_room_a_001
    name: Room A
    description: A dim parlor.
    exits:
      north: test_room_b_001
  - id: test_room_b_001
    name: Room B
    description: A colder parlor.
    exits:
      south: test_room_a_001
  - id: test_room_rest_001
    name: Dreamer's Refuge
    rest_location: true
  - id: mythos_limbo_room_void_001
    name: Limbo
`

// memTransport records every event sent to it.
type memTransport struct {
	id ulid.ULID

	mu     sync.Mutex
	events []core.Event
}

func newMemTransport() *memTransport {
	return &memTransport{id: ulid.Make()}
}

func (t *memTransport) ID() ulid.ULID { return t.id }

func (t *memTransport) Send(_ context.Context, evt core.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, evt)
	return nil
}

func (t *memTransport) Close(string) error { return nil }

// messages extracts the message strings from recorded command_response
// events.
func (t *memTransport) messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, e := range t.events {
		if e.Type != core.EventCommandResponse {
			continue
		}
		if msg, ok := e.Data["message"].(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (t *memTransport) hasEvent(et core.EventType) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.events {
		if e.Type == et {
			return true
		}
	}
	return false
}

func (t *memTransport) hasMessage(want string) bool {
	for _, msg := range t.messages() {
		if msg == want {
			return true
		}
	}
	return false
}

// memPlayers is an in-memory PlayerRepository.
type memPlayers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]world.Player
}

func newMemPlayers() *memPlayers {
	return &memPlayers{byID: make(map[uuid.UUID]world.Player)}
}

func (m *memPlayers) Get(_ context.Context, id uuid.UUID) (*world.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, world.ErrPlayerNotFound(id.String())
	}
	copied := p
	return &copied, nil
}

func (m *memPlayers) GetByName(_ context.Context, name string) (*world.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Name == name {
			copied := p
			return &copied, nil
		}
	}
	return nil, world.ErrPlayerNotFound(name)
}

func (m *memPlayers) Save(_ context.Context, p *world.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = *p
	return nil
}

func (m *memPlayers) List(_ context.Context) ([]*world.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*world.Player
	for _, p := range m.byID {
		copied := p
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memPlayers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

// memBundles is an in-memory alias BundleRepository.
type memBundles struct {
	mu      sync.Mutex
	bundles map[string]command.Bundle
}

func newMemBundles() *memBundles {
	return &memBundles{bundles: make(map[string]command.Bundle)}
}

func (m *memBundles) Load(_ context.Context, playerName string) (command.Bundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bundles[playerName], nil
}

func (m *memBundles) Save(_ context.Context, playerName string, b command.Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[playerName] = b
	return nil
}

// fakeCombat records engagement calls and answers the combat guard.
type fakeCombat struct {
	mu        sync.Mutex
	fighting  map[uuid.UUID]bool
	engaged   []string
	engageErr error
	fled      []uuid.UUID
}

func newFakeCombat() *fakeCombat {
	return &fakeCombat{fighting: make(map[uuid.UUID]bool)}
}

func (f *fakeCombat) InCombat(playerID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fighting[playerID]
}

func (f *fakeCombat) Engage(_ context.Context, attackerID uuid.UUID, targetName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.engageErr != nil {
		return f.engageErr
	}
	f.engaged = append(f.engaged, targetName)
	f.fighting[attackerID] = true
	return nil
}

func (f *fakeCombat) Disengage(_ context.Context, playerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.fighting[playerID] {
		return command.ErrNotInCombat()
	}
	delete(f.fighting, playerID)
	f.fled = append(f.fled, playerID)
	return nil
}

// fakeCasting records cast requests.
type fakeCasting struct {
	mu      sync.Mutex
	spells  []string
	castErr error
}

func (f *fakeCasting) BeginCast(_ context.Context, _ uuid.UUID, spell, targetName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.castErr != nil {
		return f.castErr
	}
	f.spells = append(f.spells, spell+"/"+targetName)
	return nil
}

// stubOccupants is a fixed NPC lister.
type stubOccupants map[string][]string

func (s stubOccupants) InRoom(roomID string) []string { return s[roomID] }

// stubCorpses is a fixed corpse label lister.
type stubCorpses map[string][]string

func (s stubCorpses) Labels(roomID string) []string { return s[roomID] }

// fixture wires the full handler service graph against in-memory fakes.
type fixture struct {
	t        *testing.T
	rooms    *world.Registry
	sessions *core.SessionRegistry
	events   *core.Broadcaster
	players  *memPlayers
	aliases  *command.AliasStore
	mutes    *command.MuteRegistry
	replies  *command.ReplyLog
	combat   *fakeCombat
	casting  *fakeCasting
	reg      *command.Registry
	svc      *command.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rooms := world.NewRegistry()
	require.NoError(t, rooms.LoadZone([]byte(testZone), "test"))

	sessions := core.NewSessionRegistry(core.SessionConfig{
		CountdownTick: 10 * time.Millisecond,
	}, rooms)
	events := core.NewBroadcaster(sessions, func(id string) string {
		canonical, err := rooms.Canonical(id)
		if err != nil {
			return id
		}
		return canonical
	})
	sessions.BindEvents(events)

	combat := newFakeCombat()
	sessions.BindCombat(combat)

	f := &fixture{
		t:        t,
		rooms:    rooms,
		sessions: sessions,
		events:   events,
		players:  newMemPlayers(),
		aliases:  command.NewAliasStore(newMemBundles()),
		mutes:    command.NewMuteRegistry(),
		replies:  command.NewReplyLog(),
		combat:   combat,
		casting:  &fakeCasting{},
		reg:      command.NewRegistry(),
	}
	f.svc = &command.Services{
		Sessions: sessions,
		Events:   events,
		Rooms:    rooms,
		Players:  f.players,
		Aliases:  f.aliases,
		Mutes:    f.mutes,
		Combat:   combat,
		Casting:  f.casting,
		Replies:  f.replies,
	}
	require.NoError(t, Register(f.reg))
	t.Cleanup(func() { sessions.CloseAll("test done") })
	return f
}

// join creates a player record and attaches a recording transport.
func (f *fixture) join(name, roomID string) (*world.Player, *memTransport) {
	f.t.Helper()
	p := world.NewPlayer(name, roomID)
	require.NoError(f.t, f.players.Save(context.Background(), p))

	tr := newMemTransport()
	require.NoError(f.t, f.sessions.Attach(p.ID, name, roomID, tr))
	return p, tr
}

// run parses one input line and invokes its handler directly, the way
// the dispatcher would after normalization and alias expansion.
func (f *fixture) run(p *world.Player, text string) (*command.Result, error) {
	f.t.Helper()

	cmd, err := command.Parse(text)
	require.NoError(f.t, err)

	entry, ok := f.reg.Get(cmd.Verb)
	require.True(f.t, ok, "no handler for %q", cmd.Verb)

	roomID := p.RoomID
	if rec := f.sessions.GetSession(p.ID); rec != nil {
		roomID = rec.RoomID
	}
	stored, err := f.players.Get(context.Background(), p.ID)
	isAdmin := p.Admin
	if err == nil {
		isAdmin = stored.Admin
	}

	sess := &command.Session{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		SessionID:  ulid.Make(),
		RoomID:     roomID,
		IsAdmin:    isAdmin,
	}
	return entry.Handler(context.Background(), cmd, sess, f.svc)
}

// errCode extracts the oops code from an error, empty if none.
func errCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		code, _ := oopsErr.Code().(string)
		return code
	}
	return ""
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
