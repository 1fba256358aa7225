// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

const testZone = `
zone: test
rooms:
  - id: test_room_a_001
    name: Room A
    exits:
      north: test_room_b_001
  - id: test_room_b_001
    name: Room B
    sanity_drain: true
    exits:
      south: test_room_a_001
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

func (t *memTransport) byType(et core.EventType) []core.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []core.Event
	for _, e := range t.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
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

// testWorld is the wired fixture most game tests run against.
type testWorld struct {
	rooms    *world.Registry
	sessions *core.SessionRegistry
	events   *core.Broadcaster
	players  *memPlayers
}

func newTestWorld(t *testing.T) *testWorld {
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

	return &testWorld{
		rooms:    rooms,
		sessions: sessions,
		events:   events,
		players:  newMemPlayers(),
	}
}

// join creates a player record and attaches a recording transport.
func (w *testWorld) join(t *testing.T, name, roomID string) (*world.Player, *memTransport) {
	t.Helper()
	p := world.NewPlayer(name, roomID)
	require.NoError(t, w.players.Save(context.Background(), p))

	tr := newMemTransport()
	require.NoError(t, w.sessions.Attach(p.ID, name, roomID, tr))
	return p, tr
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
