// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"sync"

	"github.com/google/uuid"
)

// ReplyLog is the in-memory ReplyTracker: the last whisperer per player,
// kept for the lifetime of the process. Whisper routing re-resolves the
// name at reply time, so a stale entry degrades to target-not-found.
type ReplyLog struct {
	mu   sync.Mutex
	last map[uuid.UUID]string
}

// NewReplyLog creates an empty reply log.
func NewReplyLog() *ReplyLog {
	return &ReplyLog{last: make(map[uuid.UUID]string)}
}

// SetLastWhisperer records who last whispered to the player.
func (l *ReplyLog) SetLastWhisperer(playerID uuid.UUID, fromName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[playerID] = fromName
}

// LastWhisperer returns the name of the player's last whisperer, if any.
func (l *ReplyLog) LastWhisperer(playerID uuid.UUID) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name, ok := l.last[playerID]
	return name, ok
}

// Forget drops the player's reply state. Called on player deletion.
func (l *ReplyLog) Forget(playerID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, playerID)
}
