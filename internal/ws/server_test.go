// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosmud/mythosmud/internal/auth"
	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

const testZone = `
zone: test
rooms:
  - id: test_room_a_001
    name: Room A
  - id: mythos_limbo_room_void_001
    name: Limbo
`

type stubVerifier map[string]auth.Identity

func (v stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	identity, ok := v[token]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return identity, nil
}

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

type wsFixture struct {
	srv      *httptest.Server
	sessions *core.SessionRegistry
	players  *memPlayers
	identity auth.Identity
}

func newFixture(t *testing.T, cfg ServerConfig) *wsFixture {
	t.Helper()

	rooms := world.NewRegistry()
	require.NoError(t, rooms.LoadZone([]byte(testZone), "test"))

	sessions := core.NewSessionRegistry(core.SessionConfig{}, rooms)
	events := core.NewBroadcaster(sessions, func(id string) string {
		canonical, err := rooms.Canonical(id)
		if err != nil {
			return id
		}
		return canonical
	})
	sessions.BindEvents(events)

	players := newMemPlayers()
	registry := command.NewRegistry()
	require.NoError(t, registry.Register(command.Entry{
		Verb: command.VerbSay,
		Handler: func(_ context.Context, cmd command.Command, _ *command.Session, _ *command.Services) (*command.Result, error) {
			args := cmd.Args.(command.ChatArgs)
			return &command.Result{Text: "You say, " + args.Message}, nil
		},
	}))

	dispatcher, err := command.NewDispatcher(registry, &command.Services{
		Sessions: sessions,
		Events:   events,
		Rooms:    rooms,
		Players:  players,
	}, nil, nil, command.DispatcherConfig{})
	require.NoError(t, err)

	identity := auth.Identity{
		PlayerID:   uuid.New(),
		PlayerName: "Armitage",
	}
	verifier := stubVerifier{"good-token": identity}

	if cfg.StartRoom == "" {
		cfg.StartRoom = "test_room_a_001"
	}
	server := NewServer(cfg, verifier, sessions, dispatcher, players, rooms)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, sessions: sessions, players: players, identity: identity}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) core.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var frame core.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHandshakeThenCommand(t *testing.T) {
	f := newFixture(t, ServerConfig{MOTD: "Welcome to the void."})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "auth", Token: "good-token"}))

	welcome := readFrame(t, conn)
	assert.Equal(t, core.EventCommandResponse, welcome.EventType)
	assert.Equal(t, "Welcome to the void.", welcome.Data["message"])

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "command", Command: "say hello"}))
	resp := readFrame(t, conn)
	assert.Equal(t, core.EventCommandResponse, resp.EventType)
	assert.Equal(t, "You say, hello", resp.Data["message"])
}

func TestBareStringFrameIsACommand(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "auth", Token: "good-token"}))
	readFrame(t, conn) // welcome

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("say raw line")))
	resp := readFrame(t, conn)
	assert.Equal(t, "You say, raw line", resp.Data["message"])
}

func TestInvalidTokenCloses4401(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "auth", Token: "stolen"}))
	assertClosedWith(t, conn, closeUnauthorized)
}

func TestNonAuthFirstFrameCloses4401(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "command", Command: "say hi"}))
	assertClosedWith(t, conn, closeUnauthorized)
}

func TestHandshakeTimeoutCloses4401(t *testing.T) {
	f := newFixture(t, ServerConfig{AuthTimeout: 50 * time.Millisecond})
	conn := f.dial(t)

	assertClosedWith(t, conn, closeUnauthorized)
}

func TestFirstConnectCreatesPlayerRecord(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "auth", Token: "good-token"}))
	readFrame(t, conn) // welcome

	p, err := f.players.Get(context.Background(), f.identity.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, "Armitage", p.Name)
	assert.Equal(t, "test_room_a_001", p.RoomID)
	assert.True(t, f.sessions.IsOnline(f.identity.PlayerID))
}

func TestCloseDetachesTransport(t *testing.T) {
	f := newFixture(t, ServerConfig{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(clientFrame{Type: "auth", Token: "good-token"}))
	readFrame(t, conn) // welcome
	require.Equal(t, 1, f.sessions.TransportCount())

	require.NoError(t, conn.Close())
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if f.sessions.TransportCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("transport not detached after close")
}

func assertClosedWith(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}
