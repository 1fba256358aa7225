// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// RestState is the lifecycle state of a rest countdown.
type RestState uint8

// Rest countdown states. Idle means no countdown exists.
const (
	RestIdle RestState = iota
	RestCounting
	RestCompleted
	RestCancelled
)

func (s RestState) String() string {
	switch s {
	case RestIdle:
		return "idle"
	case RestCounting:
		return "counting"
	case RestCompleted:
		return "completed"
	case RestCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// restCountdown is the cancellable handle stored on a session record.
// state is guarded by the registry mutex.
type restCountdown struct {
	state  RestState
	cancel chan struct{}
	once   sync.Once
}

func (rc *restCountdown) stop() {
	rc.once.Do(func() { close(rc.cancel) })
}

// BeginRest starts a rest countdown for the player. Preconditions: the
// session exists, no countdown is already running, and the player is not
// in combat. In rooms flagged as rest locations the countdown is skipped
// and the player disconnects immediately.
//
// On countdown expiry the player receives an intentional_disconnect event,
// all their transports are closed, and the session is removed with no
// grace period.
func (sm *SessionRegistry) BeginRest(ctx context.Context, playerID uuid.UUID, seconds int) error {
	if sm.combatActive(playerID) {
		return oops.Code(CodeCannotRestCombat).
			With("player_id", playerID.String()).
			Errorf("cannot rest while in combat")
	}

	sm.mu.Lock()
	rec, exists := sm.sessions[playerID]
	if !exists {
		sm.mu.Unlock()
		return sm.missingSession(playerID, "begin_rest")
	}
	if rec.rest != nil && rec.rest.state == RestCounting {
		sm.mu.Unlock()
		return oops.Code(CodeDuplicateRest).
			With("player_id", playerID.String()).
			Errorf("rest countdown already running")
	}

	if seconds <= 0 {
		seconds = sm.cfg.RestCountdown
	}

	rc := &restCountdown{state: RestCounting, cancel: make(chan struct{})}
	rec.rest = rc
	rec.Position = PositionSitting

	if sm.roomIndex.IsRestLocation(rec.RoomID) {
		sm.mu.Unlock()
		slog.Info("rest location short-circuit",
			"player_id", playerID.String(),
			"room_id", rec.RoomID,
		)
		sm.completeRest(ctx, playerID, rc)
		return nil
	}
	sm.mu.Unlock()

	sm.wg.Add(1)
	go sm.runRestCountdown(playerID, seconds, rc)

	slog.Info("rest countdown started",
		"player_id", playerID.String(),
		"seconds", seconds,
	)
	return nil
}

// CancelRest cancels a running countdown. Returns whether a countdown was
// actually cancelled. Safe to call for players with no countdown.
func (sm *SessionRegistry) CancelRest(playerID uuid.UUID, reason string) bool {
	sm.mu.Lock()
	rec, exists := sm.sessions[playerID]
	if !exists || rec.rest == nil || rec.rest.state != RestCounting {
		sm.mu.Unlock()
		return false
	}
	rc := rec.rest
	rc.state = RestCancelled
	rec.rest = nil
	rec.Position = PositionStanding
	// The countdown was the only thing keeping a transportless session
	// alive; fall back to the usual grace removal.
	if len(rec.Transports) == 0 && rec.graceTimer == nil && !sm.closed {
		sm.startGraceLocked(rec)
	}
	sm.mu.Unlock()

	rc.stop()
	slog.Info("rest countdown cancelled",
		"player_id", playerID.String(),
		"reason", reason,
	)
	return true
}

// RestActive reports whether the player has a running rest countdown.
func (sm *SessionRegistry) RestActive(playerID uuid.UUID) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	rec, exists := sm.sessions[playerID]
	return exists && rec.RestActive()
}

// runRestCountdown emits one "N seconds remaining" message per countdown
// unit, then completes the rest. Cancellation is checked between units.
// The goroutine deliberately does not inherit the command context: the
// countdown outlives the command that started it.
func (sm *SessionRegistry) runRestCountdown(playerID uuid.UUID, seconds int, rc *restCountdown) {
	defer sm.wg.Done()

	ctx := context.Background()
	for remaining := seconds; remaining > 0; remaining-- {
		sm.sendCountdownMessage(ctx, playerID, remaining)

		timer := time.NewTimer(sm.cfg.CountdownTick)
		select {
		case <-rc.cancel:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	// A cancel racing the final timer fire still wins.
	select {
	case <-rc.cancel:
		return
	default:
	}

	sm.completeRest(ctx, playerID, rc)
}

func (sm *SessionRegistry) sendCountdownMessage(ctx context.Context, playerID uuid.UUID, remaining int) {
	if sm.events == nil {
		return
	}
	noun := "seconds"
	if remaining == 1 {
		noun = "second"
	}
	sm.events.SendPersonal(ctx, playerID, EventCommandResponse, map[string]any{
		"message": fmt.Sprintf("%d %s remaining...", remaining, noun),
	})
}

// completeRest finishes a countdown: the player receives an
// intentional_disconnect event, is marked intentional, loses all
// transports, and the session is removed immediately.
func (sm *SessionRegistry) completeRest(ctx context.Context, playerID uuid.UUID, rc *restCountdown) {
	sm.mu.Lock()
	rec, exists := sm.sessions[playerID]
	if !exists || rec.rest != rc {
		// Cancelled and replaced while we were completing.
		sm.mu.Unlock()
		return
	}
	rc.state = RestCompleted
	sm.intentional[playerID] = struct{}{}
	transports := make([]Transport, len(rec.Transports))
	copy(transports, rec.Transports)
	sm.mu.Unlock()

	if sm.events != nil {
		sm.events.SendPersonal(ctx, playerID, EventIntentionalDisconnect, map[string]any{
			"reason": "rest_completed",
		})
	} else {
		slog.Warn("rest completed with no broadcaster bound",
			"player_id", playerID.String())
	}

	for _, t := range transports {
		if err := t.Close("rest completed"); err != nil {
			slog.Debug("transport close on rest completion failed",
				"player_id", playerID.String(),
				"transport_id", t.ID().String(),
				"error", err,
			)
		}
	}

	sm.mu.Lock()
	sm.removeSessionLocked(playerID, "rest completed")
	sm.mu.Unlock()

	slog.Info("rest countdown completed", "player_id", playerID.String())
}

func (sm *SessionRegistry) combatActive(playerID uuid.UUID) bool {
	sm.mu.RLock()
	guard := sm.combat
	sm.mu.RUnlock()
	return guard != nil && guard.InCombat(playerID)
}
