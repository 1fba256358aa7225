// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package world holds the room registry and player record model. Rooms
// are identity plus flags loaded from YAML zone files; players are
// mutable records behind a repository.
package world

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Error codes for room registry failures.
const (
	CodeUnknownRoom   = "UNKNOWN_ROOM"
	CodeMalformedRoom = "MALFORMED_ROOM_ID"
	CodeZoneLoad      = "ZONE_LOAD_FAILED"
)

// roomIDPattern constrains room identifiers: lowercase words with a
// _room_ or _intersection_ segment.
var roomIDPattern = regexp.MustCompile(`^[a-z0-9_]*_(room|intersection)_[a-z0-9_]+$`)

// MaxRoomIDLength bounds room identifiers.
const MaxRoomIDLength = 120

// DefaultLimboRoom is the well-known room dead players are moved to
// pending respawn. Zone files may override it via a limbo flag.
const DefaultLimboRoom = "mythos_limbo_room_void_001"

// Room is the registry's view of one room: identity, exits, and the
// flags the runtime consults. Content (long descriptions, objects) is
// the content pipeline's business.
type Room struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	RestLocation bool              `yaml:"rest_location"`
	SanityDrain  bool              `yaml:"sanity_drain"`
	Exits        map[string]string `yaml:"exits"`
}

// zoneFile is the YAML shape of one zone definition.
type zoneFile struct {
	Zone  string `yaml:"zone"`
	Rooms []Room `yaml:"rooms"`
}

// Registry is the room index: canonicalization, exits, and flags. The
// room set is immutable after load; lookups take the read lock only to
// allow test fixtures to load zones late.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]Room
	limbo string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]Room),
		limbo: DefaultLimboRoom,
	}
}

// LoadDir loads every *.yaml zone file under dir.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return oops.Code(CodeZoneLoad).With("dir", dir).Wrapf(err, "read zone directory")
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		if err := r.LoadZoneFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadZoneFile loads one zone YAML file into the registry.
func (r *Registry) LoadZoneFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return oops.Code(CodeZoneLoad).With("path", path).Wrapf(err, "read zone file")
		}
		return oops.Code(CodeZoneLoad).With("path", path).Wrap(err)
	}
	return r.LoadZone(data, path)
}

// LoadZone parses zone YAML and registers its rooms. Every room id and
// exit target is validated against the id grammar.
func (r *Registry) LoadZone(data []byte, source string) error {
	var zf zoneFile
	if err := yaml.Unmarshal(data, &zf); err != nil {
		return oops.Code(CodeZoneLoad).With("source", source).Wrapf(err, "parse zone yaml")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range zf.Rooms {
		room.ID = strings.ToLower(strings.TrimSpace(room.ID))
		if err := validateRoomID(room.ID); err != nil {
			return oops.Code(CodeZoneLoad).
				With("source", source).
				With("room_id", room.ID).
				Wrapf(err, "invalid room id in zone %q", zf.Zone)
		}
		for dir, target := range room.Exits {
			canonical := strings.ToLower(strings.TrimSpace(target))
			if err := validateRoomID(canonical); err != nil {
				return oops.Code(CodeZoneLoad).
					With("source", source).
					With("room_id", room.ID).
					With("exit", dir).
					Wrapf(err, "invalid exit target")
			}
			room.Exits[dir] = canonical
		}
		r.rooms[room.ID] = room
	}
	return nil
}

// SetLimbo overrides the limbo room id. The room must be registered.
func (r *Registry) SetLimbo(roomID string) error {
	canonical, err := r.Canonical(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limbo = canonical
	return nil
}

// Limbo returns the room dead players are relocated to.
func (r *Registry) Limbo() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limbo
}

// Canonical lowercases and validates a room id, and confirms the room is
// registered. This is the canonicalization step room subscriptions pass
// through before indexing.
func (r *Registry) Canonical(roomID string) (string, error) {
	canonical := strings.ToLower(strings.TrimSpace(roomID))
	if err := validateRoomID(canonical); err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.rooms[canonical]; !ok {
		return "", oops.Code(CodeUnknownRoom).
			With("room_id", canonical).
			Errorf("unknown room %q", canonical)
	}
	return canonical, nil
}

// Get returns the room for an id, canonicalizing first.
func (r *Registry) Get(roomID string) (Room, bool) {
	canonical, err := r.Canonical(roomID)
	if err != nil {
		return Room{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[canonical]
	return room, ok
}

// IsRestLocation reports whether the room carries the rest-location flag.
// Unknown rooms are not rest locations.
func (r *Registry) IsRestLocation(roomID string) bool {
	room, ok := r.Get(roomID)
	return ok && room.RestLocation
}

// Exit resolves a direction from a room to the target room id.
func (r *Registry) Exit(roomID, direction string) (string, bool) {
	room, ok := r.Get(roomID)
	if !ok {
		return "", false
	}
	target, ok := room.Exits[strings.ToLower(direction)]
	return target, ok
}

// Count returns the number of registered rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func validateRoomID(id string) error {
	if id == "" {
		return oops.Code(CodeMalformedRoom).Errorf("room id cannot be empty")
	}
	if len(id) > MaxRoomIDLength {
		return oops.Code(CodeMalformedRoom).
			With("room_id", id).
			Errorf("room id exceeds %d characters", MaxRoomIDLength)
	}
	if !roomIDPattern.MatchString(id) {
		return oops.Code(CodeMalformedRoom).
			With("room_id", id).
			Errorf("room id %q does not match the id grammar", id)
	}
	return nil
}
