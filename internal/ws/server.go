// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package ws serves the websocket client transport. Each accepted
// connection authenticates with a bearer token in its first frame, then
// attaches to the session registry and feeds raw command lines into the
// dispatcher.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mythosmud/mythosmud/internal/auth"
	"github.com/mythosmud/mythosmud/internal/command"
	"github.com/mythosmud/mythosmud/internal/core"
	"github.com/mythosmud/mythosmud/internal/world"
)

const (
	// closeUnauthorized is sent when the auth handshake fails or times out.
	closeUnauthorized = 4401

	defaultAuthTimeout = 10 * time.Second
	maxFrameBytes      = 4096
)

// DefaultMOTD greets players who connect without a configured message.
const DefaultMOTD = "The mists part. You have entered MythosMUD."

// clientFrame is the JSON shape clients send. Bare string frames are also
// accepted and treated as command text.
type clientFrame struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Command string `json:"command,omitempty"`
}

// ServerConfig configures the websocket server.
type ServerConfig struct {
	// MOTD is sent as the first command_response after attach.
	MOTD string
	// StartRoom is where newly created players begin.
	StartRoom string
	// AuthTimeout bounds the wait for the auth frame. Defaults to 10s.
	AuthTimeout time.Duration
}

// Server upgrades websocket connections and bridges them to the session
// registry and command dispatcher.
type Server struct {
	cfg        ServerConfig
	verifier   auth.TokenVerifier
	sessions   *core.SessionRegistry
	dispatcher *command.Dispatcher
	players    world.PlayerRepository
	rooms      *world.Registry
	upgrader   websocket.Upgrader
}

// NewServer creates a websocket server.
func NewServer(cfg ServerConfig, verifier auth.TokenVerifier, sessions *core.SessionRegistry, dispatcher *command.Dispatcher, players world.PlayerRepository, rooms *world.Registry) *Server {
	if cfg.MOTD == "" {
		cfg.MOTD = DefaultMOTD
	}
	if cfg.StartRoom == "" {
		cfg.StartRoom = rooms.Limbo()
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = defaultAuthTimeout
	}
	return &Server{
		cfg:        cfg,
		verifier:   verifier,
		sessions:   sessions,
		dispatcher: dispatcher,
		players:    players,
		rooms:      rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxFrameBytes,
			WriteBufferSize: maxFrameBytes,
			// Game clients connect from anywhere; commands are the
			// authenticated surface, not the origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler for the websocket endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleConnection)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	t := newTransport(conn)
	identity, err := s.authenticate(r.Context(), conn)
	if err != nil {
		slog.Info("websocket auth failed", "remote", r.RemoteAddr, "error", err)
		_ = t.closeWithCode(closeUnauthorized, "authentication required")
		return
	}

	player, err := s.loadOrCreatePlayer(r.Context(), identity)
	if err != nil {
		slog.Error("player load failed",
			"player_id", identity.PlayerID.String(),
			"error", err,
		)
		_ = t.Close("internal error")
		return
	}

	roomID := player.RoomID
	if _, err := s.rooms.Canonical(roomID); err != nil {
		// Stale room reference from an old save; fall back to the start room.
		roomID = s.cfg.StartRoom
	}
	if err := s.sessions.Attach(identity.PlayerID, identity.PlayerName, roomID, t); err != nil {
		slog.Error("attach failed",
			"player_id", identity.PlayerID.String(),
			"error", err,
		)
		_ = t.Close("internal error")
		return
	}

	s.sessions.SendToPlayer(r.Context(), identity.PlayerID, s.welcomeEvent(identity))
	s.readLoop(identity, t)
}

// authenticate reads the first frame and resolves its bearer token. The
// whole handshake must finish within the auth timeout.
func (s *Server) authenticate(ctx context.Context, conn *websocket.Conn) (auth.Identity, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout)); err != nil {
		return auth.Identity{}, err
	}
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return auth.Identity{}, err
	}

	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "auth" {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	authCtx, cancel := context.WithTimeout(ctx, s.cfg.AuthTimeout)
	defer cancel()
	return s.verifier.Verify(authCtx, frame.Token)
}

func (s *Server) loadOrCreatePlayer(ctx context.Context, identity auth.Identity) (*world.Player, error) {
	player, err := s.players.Get(ctx, identity.PlayerID)
	if err == nil {
		return player, nil
	}
	if !world.IsNotFound(err) {
		return nil, err
	}

	player = world.NewPlayer(identity.PlayerName, s.cfg.StartRoom)
	player.ID = identity.PlayerID
	player.Admin = identity.Admin
	if err := s.players.Save(ctx, player); err != nil {
		return nil, err
	}
	slog.Info("player record created",
		"player_id", player.ID.String(),
		"player_name", player.Name,
		"room_id", player.RoomID,
	)
	return player, nil
}

func (s *Server) welcomeEvent(identity auth.Identity) core.Event {
	// Built through the broadcaster via SendToPlayer callers normally;
	// the welcome goes direct so it reaches only this player's transports.
	return core.Event{
		Type: core.EventCommandResponse,
		Data: map[string]any{
			"message":   s.cfg.MOTD,
			"player_id": identity.PlayerID.String(),
		},
		Timestamp: time.Now().UTC(),
		Routing:   core.RouteToPlayer(identity.PlayerID),
	}
}

// readLoop pumps client frames into the dispatcher until the connection
// drops. It owns the detach.
func (s *Server) readLoop(identity auth.Identity, t *transport) {
	defer func() {
		s.sessions.Detach(identity.PlayerID, t.ID(), "connection closed")
		_ = t.Close("connection closed")
	}()

	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read error",
					"player_id", identity.PlayerID.String(),
					"transport_id", t.ID().String(),
					"error", err,
				)
			}
			return
		}

		line, ok := commandText(raw)
		if !ok {
			continue
		}

		s.sessions.TouchActivity(identity.PlayerID)
		sess := s.commandSession(identity, t)
		if sess == nil {
			return
		}
		// Dispatch reports every outcome to the player itself.
		_ = s.dispatcher.Dispatch(context.Background(), sess, line)
	}
}

// commandText extracts the command line from a client frame. JSON frames
// must be {"type":"command","command":...}; anything that is not JSON is
// taken as a bare command line.
func commandText(raw []byte) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", false
	}
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, true
	}
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", false
	}
	if frame.Type != "command" || frame.Command == "" {
		return "", false
	}
	return frame.Command, true
}

func (s *Server) commandSession(identity auth.Identity, t *transport) *command.Session {
	rec := s.sessions.GetSession(identity.PlayerID)
	if rec == nil {
		return nil
	}
	return &command.Session{
		PlayerID:   identity.PlayerID,
		PlayerName: identity.PlayerName,
		SessionID:  t.ID(),
		RoomID:     rec.RoomID,
		IsAdmin:    identity.Admin,
	}
}
