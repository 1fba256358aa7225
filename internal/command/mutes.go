// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"strings"
	"sync"
	"time"
)

// muteEntry is one active mute. A zero expiry never expires.
type muteEntry struct {
	expiresAt time.Time
}

func (m muteEntry) expired(now time.Time) bool {
	return !m.expiresAt.IsZero() && now.After(m.expiresAt)
}

// MuteRegistry tracks per-player mute sets: which other players a player
// has muted, and which players an admin has muted on the global channel.
// Chat fan-out consults it before delivery. Expired entries are pruned
// lazily on read.
type MuteRegistry struct {
	mu     sync.Mutex
	player map[string]map[string]muteEntry // muter → muted (lowercased names)
	global map[string]muteEntry            // muted on the global channel
	now    func() time.Time
}

// NewMuteRegistry creates an empty mute registry.
func NewMuteRegistry() *MuteRegistry {
	return &MuteRegistry{
		player: make(map[string]map[string]muteEntry),
		global: make(map[string]muteEntry),
		now:    time.Now,
	}
}

func muteExpiry(now time.Time, minutes int) time.Time {
	if minutes <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(minutes) * time.Minute)
}

// MutePlayer mutes target for muter. minutes <= 0 mutes indefinitely.
func (r *MuteRegistry) MutePlayer(muter, target string, minutes int) {
	muter, target = strings.ToLower(muter), strings.ToLower(target)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.player[muter] == nil {
		r.player[muter] = make(map[string]muteEntry)
	}
	r.player[muter][target] = muteEntry{expiresAt: muteExpiry(r.now(), minutes)}
}

// UnmutePlayer removes a player mute. Returns whether one existed.
func (r *MuteRegistry) UnmutePlayer(muter, target string) bool {
	muter, target = strings.ToLower(muter), strings.ToLower(target)
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.player[muter]
	if set == nil {
		return false
	}
	_, ok := set[target]
	delete(set, target)
	return ok
}

// IsMuted reports whether listener has muted speaker.
func (r *MuteRegistry) IsMuted(listener, speaker string) bool {
	listener, speaker = strings.ToLower(listener), strings.ToLower(speaker)
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.player[listener]
	if set == nil {
		return false
	}
	entry, ok := set[speaker]
	if !ok {
		return false
	}
	if entry.expired(r.now()) {
		delete(set, speaker)
		return false
	}
	return true
}

// MuteGlobal bars target from the global channel.
func (r *MuteRegistry) MuteGlobal(target string, minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global[strings.ToLower(target)] = muteEntry{expiresAt: muteExpiry(r.now(), minutes)}
}

// UnmuteGlobal lifts a global-channel mute. Returns whether one existed.
func (r *MuteRegistry) UnmuteGlobal(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(target)
	_, ok := r.global[key]
	delete(r.global, key)
	return ok
}

// IsGlobalMuted reports whether speaker is barred from the global channel.
func (r *MuteRegistry) IsGlobalMuted(speaker string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(speaker)
	entry, ok := r.global[key]
	if !ok {
		return false
	}
	if entry.expired(r.now()) {
		delete(r.global, key)
		return false
	}
	return true
}

// ForgetPlayer drops all mute state involving the player. Called on player
// deletion, not on disconnect: mutes survive reconnects.
func (r *MuteRegistry) ForgetPlayer(name string) {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.player, key)
	delete(r.global, key)
	for _, set := range r.player {
		delete(set, key)
	}
}
