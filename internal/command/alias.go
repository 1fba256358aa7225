// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Alias bundle limits.
const (
	MaxAliasNameLength  = 20
	MaxAliasBodyLength  = 200
	MaxAliasesPerBundle = 50

	// BundleVersion is written into every persisted bundle.
	BundleVersion = "1.0"
)

// aliasNamePattern validates alias names.
var aliasNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// reservedAliasWords may be neither an alias name nor the leading token of
// an alias body.
var reservedAliasWords = map[string]struct{}{
	"alias": {}, "aliases": {}, "unalias": {}, "help": {},
}

// Alias is one named per-player macro.
type Alias struct {
	Name      string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bundle is the full set of a player's aliases.
type Bundle struct {
	Version string
	Aliases []Alias
}

// BundleRepository persists per-player bundles. Load returns an empty
// bundle for players with no record; it returns an error only for
// records that exist but fail shape validation.
type BundleRepository interface {
	Load(ctx context.Context, playerName string) (Bundle, error)
	Save(ctx context.Context, playerName string, b Bundle) error
}

// ValidateAliasName checks an alias name against the naming rules and the
// reserved word set.
func ValidateAliasName(name string) error {
	if name == "" {
		return ErrBadArguments("alias name", "cannot be empty")
	}
	if len(name) > MaxAliasNameLength {
		return ErrBadArguments("alias name", "too long")
	}
	if !aliasNamePattern.MatchString(name) {
		return ErrBadArguments("alias name", "must start with a letter and contain only letters, digits, or underscores")
	}
	if _, reserved := reservedAliasWords[strings.ToLower(name)]; reserved {
		return ErrReservedName(name)
	}
	return nil
}

// ValidateAliasBody checks an alias body's length and its leading token
// against the reserved word set.
func ValidateAliasBody(body string) error {
	if body == "" {
		return ErrBadArguments("alias command", "cannot be empty")
	}
	if len(body) > MaxAliasBodyLength {
		return ErrBadArguments("alias command", "too long")
	}
	head, _ := splitFirstWord(body)
	if _, reserved := reservedAliasWords[strings.ToLower(head)]; reserved {
		return ErrReservedName(head)
	}
	return nil
}

// playerBundle is the in-memory view of one player's aliases, serialized
// by its own mutex so concurrent mutations for one player never interleave
// with the repository save.
type playerBundle struct {
	mu     sync.Mutex
	loaded bool
	bundle Bundle
}

// AliasStore is the per-player alias CRUD surface backed by a
// BundleRepository. Mutations write through to the repository; reads come
// from the in-memory bundle after first load. Corrupt persisted records
// are logged and treated as empty, never raised.
type AliasStore struct {
	repo BundleRepository

	mu      sync.Mutex
	players map[string]*playerBundle // lowercased player name
}

// NewAliasStore creates an alias store over the given repository.
func NewAliasStore(repo BundleRepository) *AliasStore {
	return &AliasStore{
		repo:    repo,
		players: make(map[string]*playerBundle),
	}
}

func (s *AliasStore) player(name string) *playerBundle {
	key := strings.ToLower(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	pb, ok := s.players[key]
	if !ok {
		pb = &playerBundle{}
		s.players[key] = pb
	}
	return pb
}

// ensureLoadedLocked loads the player's bundle from the repository on
// first touch. Caller holds pb.mu.
func (s *AliasStore) ensureLoadedLocked(ctx context.Context, playerName string, pb *playerBundle) {
	if pb.loaded {
		return
	}
	b, err := s.repo.Load(ctx, playerName)
	if err != nil {
		slog.Error("alias bundle failed validation, treating as empty",
			"player", playerName,
			"error", err,
		)
		b = Bundle{Version: BundleVersion}
	}
	if b.Version == "" {
		b.Version = BundleVersion
	}
	pb.bundle = b
	pb.loaded = true
}

// Get returns the alias with the given name (case-insensitive), if any.
func (s *AliasStore) Get(ctx context.Context, playerName, name string) (Alias, bool) {
	pb := s.player(playerName)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	s.ensureLoadedLocked(ctx, playerName, pb)

	for _, a := range pb.bundle.Aliases {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Alias{}, false
}

// List returns a copy of the player's bundle, empty if none exists.
func (s *AliasStore) List(ctx context.Context, playerName string) Bundle {
	pb := s.player(playerName)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	s.ensureLoadedLocked(ctx, playerName, pb)

	out := Bundle{Version: pb.bundle.Version}
	out.Aliases = make([]Alias, len(pb.bundle.Aliases))
	copy(out.Aliases, pb.bundle.Aliases)
	return out
}

// Resolve returns the body for a head word if it names an alias.
func (s *AliasStore) Resolve(ctx context.Context, playerName, head string) (string, bool) {
	a, ok := s.Get(ctx, playerName, head)
	if !ok {
		return "", false
	}
	return a.Body, true
}

// Add validates and stores an alias. An existing alias with the same name
// (case-insensitive) is replaced; otherwise the alias is appended, subject
// to the bundle limit. Adds that would make the dependency graph cyclic
// are rejected and the bundle is left unchanged.
func (s *AliasStore) Add(ctx context.Context, playerName string, name, body string) (Alias, error) {
	if err := ValidateAliasName(name); err != nil {
		return Alias{}, err
	}
	if err := ValidateAliasBody(body); err != nil {
		return Alias{}, err
	}

	pb := s.player(playerName)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	s.ensureLoadedLocked(ctx, playerName, pb)

	now := time.Now().UTC()
	next := Bundle{Version: pb.bundle.Version}
	next.Aliases = make([]Alias, len(pb.bundle.Aliases))
	copy(next.Aliases, pb.bundle.Aliases)

	replaced := false
	alias := Alias{Name: name, Body: body, CreatedAt: now, UpdatedAt: now}
	for i, a := range next.Aliases {
		if strings.EqualFold(a.Name, name) {
			alias.CreatedAt = a.CreatedAt
			next.Aliases[i] = alias
			replaced = true
			break
		}
	}
	if !replaced {
		if len(next.Aliases) >= MaxAliasesPerBundle {
			return Alias{}, ErrAliasLimitReached(MaxAliasesPerBundle)
		}
		next.Aliases = append(next.Aliases, alias)
	}

	// Rebuild the graph over the candidate bundle; a cycle rejects the add.
	graph := BuildGraph(next)
	if cycle := graph.DetectCycle(name); cycle != nil {
		return Alias{}, ErrAliasCycle(cycle)
	}

	if err := s.repo.Save(ctx, playerName, next); err != nil {
		return Alias{}, oops.With("player", playerName).
			With("alias", name).
			Wrapf(err, "persist alias bundle")
	}
	pb.bundle = next
	return alias, nil
}

// Remove deletes an alias by name. Returns whether a removal occurred.
func (s *AliasStore) Remove(ctx context.Context, playerName, name string) (bool, error) {
	pb := s.player(playerName)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	s.ensureLoadedLocked(ctx, playerName, pb)

	for i, a := range pb.bundle.Aliases {
		if strings.EqualFold(a.Name, name) {
			next := Bundle{Version: pb.bundle.Version}
			next.Aliases = make([]Alias, 0, len(pb.bundle.Aliases)-1)
			next.Aliases = append(next.Aliases, pb.bundle.Aliases[:i]...)
			next.Aliases = append(next.Aliases, pb.bundle.Aliases[i+1:]...)
			if err := s.repo.Save(ctx, playerName, next); err != nil {
				return false, oops.With("player", playerName).
					With("alias", name).
					Wrapf(err, "persist alias bundle")
			}
			pb.bundle = next
			return true, nil
		}
	}
	return false, nil
}

// Clear empties the player's bundle. Clearing an already-empty bundle is a
// no-op that still succeeds.
func (s *AliasStore) Clear(ctx context.Context, playerName string) error {
	pb := s.player(playerName)
	pb.mu.Lock()
	defer pb.mu.Unlock()
	s.ensureLoadedLocked(ctx, playerName, pb)

	if len(pb.bundle.Aliases) == 0 {
		return nil
	}
	next := Bundle{Version: pb.bundle.Version}
	if err := s.repo.Save(ctx, playerName, next); err != nil {
		return oops.With("player", playerName).Wrapf(err, "persist alias bundle")
	}
	pb.bundle = next
	return nil
}

// Evict drops a player's in-memory bundle, forcing a reload on next use.
// Called when the player's session is removed.
func (s *AliasStore) Evict(playerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, strings.ToLower(playerName))
}

// Graph builds the dependency graph over the player's current bundle.
func (s *AliasStore) Graph(ctx context.Context, playerName string) *Graph {
	return BuildGraph(s.List(ctx, playerName))
}
