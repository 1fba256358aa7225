// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"gopkg.in/yaml.v3"

	"github.com/mythosmud/mythosmud/internal/auth"
	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/command/handlers"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/game"
	"github.com/mythosmud/mythosmud/internal/script"
	"github.com/mythosmud/mythosmud/internal/store"
	"github.com/mythosmud/mythosmud/internal/world"
	"github.com/mythosmud/mythosmud/internal/ws"
)

const (
	harnessMOTD      = "The mists part. Welcome to the test harness."
	harnessStartRoom = "port_room_square_001"
	frameTimeout     = 5 * time.Second
)

const harnessZone = `
zone: port
rooms:
  - id: port_room_square_001
    name: Dream Square
    description: Fog coils over worn cobblestones.
    exits:
      north: port_room_quay_001
  - id: port_room_quay_001
    name: Foggy Quay
    description: Black water laps at the pilings.
    exits:
      south: port_room_square_001
  - id: mythos_limbo_room_void_001
    name: The Void
`

// harnessConfig shapes one in-process server. Zero values give a server
// with no running tick loop and the default rest countdown.
type harnessConfig struct {
	players       []string
	restCountdown int
	tickInterval  time.Duration
	runLoop       bool
}

// harness is a full in-process server: real stores on a temp dir, the
// command pipeline, and a websocket listener on an ephemeral port.
type harness struct {
	ts        *httptest.Server
	sessions  *core.SessionRegistry
	events    *core.Broadcaster
	players   *store.BoltPlayerStore
	sink      *store.JSONLAuditSink
	limiter   *command.RateLimiter
	scheduler *game.Scheduler
	tokens    map[string]string
	runLoop   bool
}

func newHarness(cfg harnessConfig) *harness {
	tmp := GinkgoT().TempDir()

	players, err := store.OpenBoltPlayerStore(filepath.Join(tmp, "players.db"))
	Expect(err).NotTo(HaveOccurred())

	aliasesDir := filepath.Join(tmp, "aliases")
	Expect(os.MkdirAll(aliasesDir, 0o750)).To(Succeed())
	bundles, err := store.NewFileBundleRepository(aliasesDir)
	Expect(err).NotTo(HaveOccurred())

	sink, err := store.NewJSONLAuditSink(filepath.Join(tmp, "audit.jsonl"))
	Expect(err).NotTo(HaveOccurred())

	rooms := world.NewRegistry()
	Expect(rooms.LoadZone([]byte(harnessZone), "port")).To(Succeed())

	sessions := core.NewSessionRegistry(core.SessionConfig{
		DisconnectGrace: 100 * time.Millisecond,
		RestCountdown:   cfg.restCountdown,
		CountdownTick:   20 * time.Millisecond,
	}, rooms)
	events := core.NewBroadcaster(sessions, func(id string) string {
		canonical, err := rooms.Canonical(id)
		if err != nil {
			return id
		}
		return canonical
	})
	sessions.BindEvents(events)

	effects := game.NewEffectsService(sessions, events, players)
	combat := game.NewCombatEngine(game.CombatConfig{}, sessions, events, players)
	sessions.BindCombat(combat)
	casting := game.NewCastingEngine(sessions, events, players, 0)
	corpses := game.NewCorpseRegistry(events, 0)
	vitals := game.NewVitalsService(sessions, events, players, rooms, corpses, 0)
	npcs := game.NewNPCService(events, rooms, script.NewEngine(script.DefaultBudget), nil)

	interval := cfg.tickInterval
	if interval <= 0 {
		interval = 25 * time.Millisecond
	}
	scheduler := game.NewLoop(game.SchedulerConfig{Interval: interval}, game.LoopDeps{
		Sessions: sessions,
		Events:   events,
		Effects:  effects,
		Combat:   combat,
		Casting:  casting,
		Vitals:   vitals,
		NPCs:     npcs,
		Corpses:  corpses,
	})

	registry := command.NewRegistry()
	Expect(handlers.Register(registry)).To(Succeed())
	classifier, err := command.NewClassifier()
	Expect(err).NotTo(HaveOccurred())
	audit := command.NewAuditLog(classifier, sink)
	limiter := command.NewRateLimiter(command.RateLimiterConfig{BurstCapacity: 100, SustainedRate: 100}, nil)

	services := &command.Services{
		Sessions: sessions,
		Events:   events,
		Rooms:    rooms,
		Players:  players,
		Aliases:  command.NewAliasStore(bundles),
		Mutes:    command.NewMuteRegistry(),
		Combat:   combat,
		Casting:  casting,
		Replies:  command.NewReplyLog(),
		NPCs:     npcs,
		Corpses:  corpses,
	}
	dispatcher, err := command.NewDispatcher(registry, services, audit, limiter, command.DispatcherConfig{})
	Expect(err).NotTo(HaveOccurred())

	hasher := auth.NewArgon2idHasher()
	tokens := make(map[string]string, len(cfg.players))
	type credEntry struct {
		Name      string `yaml:"name"`
		ID        string `yaml:"id"`
		TokenHash string `yaml:"token_hash"`
		Admin     bool   `yaml:"admin"`
	}
	var creds struct {
		Players []credEntry `yaml:"players"`
	}
	for _, name := range cfg.players {
		token := strings.ToLower(name) + "-token"
		hash, err := hasher.Hash(token)
		Expect(err).NotTo(HaveOccurred())
		tokens[name] = token
		creds.Players = append(creds.Players, credEntry{
			Name:      name,
			ID:        uuid.NewString(),
			TokenHash: hash,
			Admin:     name == "Keeper",
		})
	}
	credsRaw, err := yaml.Marshal(creds)
	Expect(err).NotTo(HaveOccurred())
	credsPath := filepath.Join(tmp, "credentials.yaml")
	Expect(os.WriteFile(credsPath, credsRaw, 0o600)).To(Succeed())

	verifier, err := auth.LoadCredentials(credsPath, hasher)
	Expect(err).NotTo(HaveOccurred())

	wsServer := ws.NewServer(ws.ServerConfig{
		MOTD:      harnessMOTD,
		StartRoom: harnessStartRoom,
	}, verifier, sessions, dispatcher, players, rooms)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer.Handler())

	h := &harness{
		ts:        httptest.NewServer(mux),
		sessions:  sessions,
		events:    events,
		players:   players,
		sink:      sink,
		limiter:   limiter,
		scheduler: scheduler,
		tokens:    tokens,
		runLoop:   cfg.runLoop,
	}
	if cfg.runLoop {
		scheduler.Start(context.Background())
	}
	return h
}

func (h *harness) stop() {
	h.sessions.CloseAll("harness stopping")
	if h.runLoop {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(h.scheduler.Stop(ctx)).To(Succeed())
	}
	h.ts.Close()
	h.limiter.Close()
	h.events.Close()
	Expect(h.sink.Close()).To(Succeed())
	Expect(h.players.Close()).To(Succeed())
}

// playerID resolves an online player's id by display name.
func (h *harness) playerID(name string) uuid.UUID {
	for _, rec := range h.sessions.ListSessions() {
		if rec.DisplayName == name {
			return rec.PlayerID
		}
	}
	return uuid.Nil
}

// dial opens a raw websocket connection without authenticating.
func (h *harness) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	Expect(err).NotTo(HaveOccurred())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn
}

// client is one authenticated websocket connection.
type client struct {
	conn *websocket.Conn
}

// connect dials, authenticates as name, and consumes the MOTD welcome.
func (h *harness) connect(name string) *client {
	conn := h.dial()
	Expect(conn.WriteJSON(map[string]string{
		"type":  "auth",
		"token": h.tokens[name],
	})).To(Succeed())

	c := &client{conn: conn}
	c.expectMessage(harnessMOTD)
	return c
}

func (c *client) close() {
	_ = c.conn.Close()
}

func (c *client) send(text string) {
	Expect(c.conn.WriteJSON(map[string]string{
		"type":    "command",
		"command": text,
	})).To(Succeed())
}

// expectFrame reads frames until one matches or the timeout passes.
func (c *client) expectFrame(match func(core.Frame) bool) core.Frame {
	deadline := time.Now().Add(frameTimeout)
	for time.Now().Before(deadline) {
		Expect(c.conn.SetReadDeadline(deadline)).To(Succeed())
		_, raw, err := c.conn.ReadMessage()
		Expect(err).NotTo(HaveOccurred(), "reading websocket frame")
		var f core.Frame
		Expect(json.Unmarshal(raw, &f)).To(Succeed())
		if match(f) {
			return f
		}
	}
	Fail("expected frame not received before the deadline")
	return core.Frame{}
}

// expectMessage waits for a command_response whose message contains want.
func (c *client) expectMessage(want string) {
	c.expectFrame(func(f core.Frame) bool {
		if f.EventType != core.EventCommandResponse {
			return false
		}
		msg, _ := f.Data["message"].(string)
		return strings.Contains(msg, want)
	})
}

// expectClosed drains frames until the server closes the connection.
func (c *client) expectClosed() {
	deadline := time.Now().Add(frameTimeout)
	for time.Now().Before(deadline) {
		_ = c.conn.SetReadDeadline(deadline)
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
	Fail("connection did not close before the deadline")
}
