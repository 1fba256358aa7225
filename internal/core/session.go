// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Error codes for session registry failures.
const (
	CodeSessionMissing   = "SESSION_MISSING"
	CodeDuplicateRest    = "DUPLICATE_REST"
	CodeCannotRestCombat = "CANNOT_REST_IN_COMBAT"
	CodeInvalidRoom      = "INVALID_ROOM"
	CodeRegistryShutdown = "REGISTRY_SHUTDOWN"
)

// Position is a player's physical posture as tracked by the session.
type Position string

// Postures the session registry distinguishes.
const (
	PositionStanding Position = "standing"
	PositionSitting  Position = "sitting"
	PositionLying    Position = "lying"
)

// Transport is a single full-duplex client connection. Implementations
// must be safe for concurrent Send calls.
type Transport interface {
	ID() ulid.ULID
	Send(ctx context.Context, evt Event) error
	Close(reason string) error
}

// DeliverySummary reports per-transport outcomes of a delivery.
type DeliverySummary struct {
	Success  int
	Failures int
}

// CombatGuard answers whether a player is currently in combat. The combat
// service implements it; the registry uses it to gate rest countdowns.
type CombatGuard interface {
	InCombat(playerID uuid.UUID) bool
}

// RoomIndex canonicalizes room identifiers and exposes room flags the
// registry needs. The world registry implements it.
type RoomIndex interface {
	Canonical(roomID string) (string, error)
	IsRestLocation(roomID string) bool
}

// SessionConfig configures the session registry.
type SessionConfig struct {
	// DisconnectGrace is how long a session with zero transports survives
	// before removal, unless the disconnect was marked intentional.
	// Defaults to 30s if zero.
	DisconnectGrace time.Duration

	// RestCountdown is the default rest duration in whole countdown units.
	// Defaults to 10 if zero.
	RestCountdown int

	// CountdownTick is the length of one countdown unit. Defaults to one
	// second; tests shrink it.
	CountdownTick time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.DisconnectGrace <= 0 {
		c.DisconnectGrace = 30 * time.Second
	}
	if c.RestCountdown <= 0 {
		c.RestCountdown = 10
	}
	if c.CountdownTick <= 0 {
		c.CountdownTick = time.Second
	}
	return c
}

// SessionRecord is the per-player state owned by the registry.
type SessionRecord struct {
	PlayerID       uuid.UUID
	DisplayName    string
	RoomID         string
	Position       Position
	Transports     []Transport
	Subscriptions  map[string]struct{} // canonical room ids
	LastActivityAt time.Time

	graceTimer *time.Timer
	rest       *restCountdown
}

// RestActive reports whether a rest countdown is running for the record.
func (r *SessionRecord) RestActive() bool {
	return r.rest != nil && r.rest.state == RestCounting
}

// copyRecord returns a defensive copy so callers cannot mutate registry state.
func copyRecord(r *SessionRecord) *SessionRecord {
	transports := make([]Transport, len(r.Transports))
	copy(transports, r.Transports)
	subs := make(map[string]struct{}, len(r.Subscriptions))
	for k := range r.Subscriptions {
		subs[k] = struct{}{}
	}
	return &SessionRecord{
		PlayerID:       r.PlayerID,
		DisplayName:    r.DisplayName,
		RoomID:         r.RoomID,
		Position:       r.Position,
		Transports:     transports,
		Subscriptions:  subs,
		LastActivityAt: r.LastActivityAt,
		rest:           r.rest,
	}
}

// SessionRegistry tracks live transports, room subscriptions, intentional
// disconnects, and rest countdowns per player. All methods are safe for
// concurrent use. Cross-player operations snapshot state rather than
// holding the lock across transport I/O.
type SessionRegistry struct {
	mu          sync.RWMutex
	cfg         SessionConfig
	sessions    map[uuid.UUID]*SessionRecord
	rooms       map[string]map[uuid.UUID]struct{} // canonical room → subscribers
	intentional map[uuid.UUID]struct{}
	roomIndex   RoomIndex
	combat      CombatGuard  // optional, bound after construction
	events      *Broadcaster // bound after construction
	closed      bool
	wg          sync.WaitGroup
}

// NewSessionRegistry creates a session registry. BindEvents must be called
// before any transport is attached.
func NewSessionRegistry(cfg SessionConfig, rooms RoomIndex) *SessionRegistry {
	return &SessionRegistry{
		cfg:         cfg.withDefaults(),
		sessions:    make(map[uuid.UUID]*SessionRecord),
		rooms:       make(map[string]map[uuid.UUID]struct{}),
		intentional: make(map[uuid.UUID]struct{}),
		roomIndex:   rooms,
	}
}

// BindEvents wires the broadcaster used for countdown and disconnect events.
// Separate from construction because the broadcaster needs the registry as
// its delivery target.
func (sm *SessionRegistry) BindEvents(b *Broadcaster) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.events = b
}

// BindCombat wires the combat guard used to gate rest countdowns.
func (sm *SessionRegistry) BindCombat(g CombatGuard) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.combat = g
}

// Attach adds a transport to a player's session, creating the session on
// first attach. Any pending disconnect grace timer is cancelled and the
// player is subscribed to their current room.
func (sm *SessionRegistry) Attach(playerID uuid.UUID, displayName, roomID string, t Transport) error {
	canonical, err := sm.roomIndex.Canonical(roomID)
	if err != nil {
		return oops.Code(CodeInvalidRoom).
			With("room_id", roomID).
			Wrapf(err, "cannot attach to room %q", roomID)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return oops.Code(CodeRegistryShutdown).Errorf("session registry is shut down")
	}

	rec, exists := sm.sessions[playerID]
	if !exists {
		rec = &SessionRecord{
			PlayerID:      playerID,
			DisplayName:   displayName,
			RoomID:        canonical,
			Position:      PositionStanding,
			Transports:    make([]Transport, 0, 1),
			Subscriptions: make(map[string]struct{}),
		}
		sm.sessions[playerID] = rec
	}

	if rec.graceTimer != nil {
		rec.graceTimer.Stop()
		rec.graceTimer = nil
	}

	rec.Transports = append(rec.Transports, t)
	rec.LastActivityAt = time.Now()
	sm.subscribeLocked(rec, canonical)

	slog.Info("transport attached",
		"player_id", playerID.String(),
		"transport_id", t.ID().String(),
		"room_id", canonical,
		"transport_count", len(rec.Transports),
	)
	return nil
}

// Detach removes a transport from a player's session. When the last
// transport goes away the session is removed immediately for intentional
// disconnects, otherwise after the configured grace period.
func (sm *SessionRegistry) Detach(playerID uuid.UUID, transportID ulid.ULID, reason string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		slog.Debug("detach for unknown session",
			"player_id", playerID.String(),
			"transport_id", transportID.String(),
		)
		return
	}

	for i, t := range rec.Transports {
		if t.ID() == transportID {
			rec.Transports = append(rec.Transports[:i], rec.Transports[i+1:]...)
			break
		}
	}

	if len(rec.Transports) > 0 {
		return
	}

	if _, intentional := sm.intentional[playerID]; intentional {
		sm.removeSessionLocked(playerID, reason)
		return
	}

	// Rest countdowns keep the session alive; completion removes it itself.
	if rec.RestActive() {
		return
	}

	sm.startGraceLocked(rec)
	slog.Info("last transport detached, grace timer started",
		"player_id", playerID.String(),
		"reason", reason,
		"grace", sm.cfg.DisconnectGrace.String(),
	)
}

// startGraceLocked schedules session removal after the grace period unless
// a transport reattaches or a rest countdown starts in the meantime.
func (sm *SessionRegistry) startGraceLocked(rec *SessionRecord) {
	playerID := rec.PlayerID
	rec.graceTimer = time.AfterFunc(sm.cfg.DisconnectGrace, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		cur, ok := sm.sessions[playerID]
		if !ok || len(cur.Transports) > 0 || cur.RestActive() {
			return
		}
		sm.removeSessionLocked(playerID, "grace period expired")
	})
}

// MarkIntentional records that the player's next disconnect is deliberate,
// so detach removes the session without a grace period. The mark is
// consumed by detach processing.
func (sm *SessionRegistry) MarkIntentional(playerID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.intentional[playerID] = struct{}{}
}

// SubscribeRoom adds the player to a room's broadcast set. The room id is
// canonicalized before indexing.
func (sm *SessionRegistry) SubscribeRoom(playerID uuid.UUID, roomID string) error {
	canonical, err := sm.roomIndex.Canonical(roomID)
	if err != nil {
		return oops.Code(CodeInvalidRoom).
			With("room_id", roomID).
			Wrapf(err, "cannot subscribe to room %q", roomID)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		return sm.missingSession(playerID, "subscribe_room")
	}
	sm.subscribeLocked(rec, canonical)
	return nil
}

// UnsubscribeRoom removes the player from a room's broadcast set.
func (sm *SessionRegistry) UnsubscribeRoom(playerID uuid.UUID, roomID string) error {
	canonical, err := sm.roomIndex.Canonical(roomID)
	if err != nil {
		return oops.Code(CodeInvalidRoom).
			With("room_id", roomID).
			Wrapf(err, "cannot unsubscribe from room %q", roomID)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		return sm.missingSession(playerID, "unsubscribe_room")
	}
	sm.unsubscribeLocked(rec, canonical)
	return nil
}

// SetRoom moves the player's session to a new room, replacing the previous
// room subscription. Movement cancels any running rest countdown.
func (sm *SessionRegistry) SetRoom(playerID uuid.UUID, roomID string) error {
	canonical, err := sm.roomIndex.Canonical(roomID)
	if err != nil {
		return oops.Code(CodeInvalidRoom).
			With("room_id", roomID).
			Wrapf(err, "cannot move to room %q", roomID)
	}

	sm.CancelRest(playerID, "movement")

	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		return sm.missingSession(playerID, "set_room")
	}
	sm.unsubscribeLocked(rec, rec.RoomID)
	rec.RoomID = canonical
	rec.Position = PositionStanding
	sm.subscribeLocked(rec, canonical)
	return nil
}

// SetPosition updates the player's posture.
func (sm *SessionRegistry) SetPosition(playerID uuid.UUID, pos Position) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		return
	}
	rec.Position = pos
}

// TouchActivity refreshes the session's last activity time.
func (sm *SessionRegistry) TouchActivity(playerID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		return
	}
	rec.LastActivityAt = time.Now()
}

// GetSession returns a copy of a player's session, or nil if none exists.
func (sm *SessionRegistry) GetSession(playerID uuid.UUID) *SessionRecord {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	rec, exists := sm.sessions[playerID]
	if !exists {
		return nil
	}
	return copyRecord(rec)
}

// IsOnline reports whether the player counts as online: at least one live
// transport, or an active rest countdown.
func (sm *SessionRegistry) IsOnline(playerID uuid.UUID) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	rec, exists := sm.sessions[playerID]
	return exists && (len(rec.Transports) > 0 || rec.RestActive())
}

// OnlinePlayers returns the ids of all online players.
func (sm *SessionRegistry) OnlinePlayers() []uuid.UUID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]uuid.UUID, 0, len(sm.sessions))
	for id, rec := range sm.sessions {
		if len(rec.Transports) > 0 || rec.RestActive() {
			result = append(result, id)
		}
	}
	return result
}

// ListSessions returns copies of all session records, online or not.
func (sm *SessionRegistry) ListSessions() []*SessionRecord {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]*SessionRecord, 0, len(sm.sessions))
	for _, rec := range sm.sessions {
		result = append(result, copyRecord(rec))
	}
	return result
}

// TransportCount returns the total number of live transports across all
// sessions. Exposed for invariant checks and metrics.
func (sm *SessionRegistry) TransportCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	n := 0
	for _, rec := range sm.sessions {
		n += len(rec.Transports)
	}
	return n
}

// RoomSubscribers returns the ids of players subscribed to a room.
func (sm *SessionRegistry) RoomSubscribers(roomID string) []uuid.UUID {
	canonical, err := sm.roomIndex.Canonical(roomID)
	if err != nil {
		slog.Warn("room subscribers lookup with invalid room id",
			"room_id", roomID, "error", err)
		return nil
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs := sm.rooms[canonical]
	result := make([]uuid.UUID, 0, len(subs))
	for id := range subs {
		result = append(result, id)
	}
	return result
}

// SendToPlayer delivers an event to every transport of a player. Transport
// failures are logged and counted but do not abort remaining deliveries.
func (sm *SessionRegistry) SendToPlayer(ctx context.Context, playerID uuid.UUID, evt Event) DeliverySummary {
	sm.mu.RLock()
	rec, exists := sm.sessions[playerID]
	var transports []Transport
	if exists {
		transports = make([]Transport, len(rec.Transports))
		copy(transports, rec.Transports)
	}
	sm.mu.RUnlock()

	if !exists {
		slog.Debug("send to player without session",
			"player_id", playerID.String(),
			"event_type", string(evt.Type),
		)
		return DeliverySummary{}
	}

	var summary DeliverySummary
	for _, t := range transports {
		if err := t.Send(ctx, evt); err != nil {
			summary.Failures++
			slog.Warn("event delivery failed",
				"player_id", playerID.String(),
				"transport_id", t.ID().String(),
				"event_type", string(evt.Type),
				"error", err,
			)
			continue
		}
		summary.Success++
	}
	return summary
}

// BroadcastToRoom delivers an event to every subscriber of a room,
// optionally skipping one player. The subscriber set is snapshotted before
// delivery so the lock is not held across transport I/O.
func (sm *SessionRegistry) BroadcastToRoom(ctx context.Context, roomID string, evt Event, exclude *uuid.UUID) DeliverySummary {
	var summary DeliverySummary
	for _, id := range sm.RoomSubscribers(roomID) {
		if exclude != nil && id == *exclude {
			continue
		}
		s := sm.SendToPlayer(ctx, id, evt)
		summary.Success += s.Success
		summary.Failures += s.Failures
	}
	return summary
}

// CloseAll force-closes every transport and removes all sessions. Used
// during shutdown after rest countdowns have been cancelled.
func (sm *SessionRegistry) CloseAll(reason string) {
	sm.mu.Lock()
	sm.closed = true
	records := make([]*SessionRecord, 0, len(sm.sessions))
	for _, rec := range sm.sessions {
		records = append(records, rec)
	}
	sm.mu.Unlock()

	for _, rec := range records {
		sm.CancelRest(rec.PlayerID, "shutdown")
		for _, t := range rec.Transports {
			if err := t.Close(reason); err != nil {
				slog.Debug("transport close failed",
					"player_id", rec.PlayerID.String(),
					"transport_id", t.ID().String(),
					"error", err,
				)
			}
		}
	}

	sm.mu.Lock()
	for id, rec := range sm.sessions {
		if rec.graceTimer != nil {
			rec.graceTimer.Stop()
		}
		sm.removeSessionLocked(id, reason)
	}
	sm.mu.Unlock()

	sm.wg.Wait()
}

// subscribeLocked adds the player to a canonical room's subscriber set.
func (sm *SessionRegistry) subscribeLocked(rec *SessionRecord, canonical string) {
	rec.Subscriptions[canonical] = struct{}{}
	if sm.rooms[canonical] == nil {
		sm.rooms[canonical] = make(map[uuid.UUID]struct{})
	}
	sm.rooms[canonical][rec.PlayerID] = struct{}{}
}

// unsubscribeLocked removes the player from a canonical room's subscriber set.
func (sm *SessionRegistry) unsubscribeLocked(rec *SessionRecord, canonical string) {
	delete(rec.Subscriptions, canonical)
	if subs := sm.rooms[canonical]; subs != nil {
		delete(subs, rec.PlayerID)
		if len(subs) == 0 {
			delete(sm.rooms, canonical)
		}
	}
}

// removeSessionLocked deletes a session and all its index entries. Any
// running rest countdown must already be cancelled or completed.
func (sm *SessionRegistry) removeSessionLocked(playerID uuid.UUID, reason string) {
	rec, exists := sm.sessions[playerID]
	if !exists {
		return
	}
	if rec.graceTimer != nil {
		rec.graceTimer.Stop()
		rec.graceTimer = nil
	}
	for canonical := range rec.Subscriptions {
		if subs := sm.rooms[canonical]; subs != nil {
			delete(subs, playerID)
			if len(subs) == 0 {
				delete(sm.rooms, canonical)
			}
		}
	}
	delete(sm.sessions, playerID)
	delete(sm.intentional, playerID)
	slog.Info("session removed",
		"player_id", playerID.String(),
		"reason", reason,
	)
}

// missingSession logs an invariant violation and returns the corresponding
// error. Callers treat it as non-fatal.
func (sm *SessionRegistry) missingSession(playerID uuid.UUID, op string) error {
	slog.Error("operation on missing session",
		"player_id", playerID.String(),
		"op", op,
	)
	return oops.Code(CodeSessionMissing).
		With("player_id", playerID.String()).
		With("op", op).
		Errorf("no session for player %s", playerID.String())
}
