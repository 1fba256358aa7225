// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package world

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Error codes for player repository failures.
const (
	CodePlayerNotFound = "PLAYER_NOT_FOUND"
	CodePlayerStore    = "PLAYER_STORE_FAILED"
)

// Position is a player's physical posture. Posture gates some commands
// and modifies vitals recovery during the game tick.
type Position string

const (
	PositionStanding Position = "standing"
	PositionSitting  Position = "sitting"
	PositionResting  Position = "resting"
	PositionDead     Position = "dead"
)

// Effect kinds the game loop acts on. Other kinds are inert markers.
const (
	EffectDamageOverTime = "damage_over_time"
	EffectHealOverTime   = "heal_over_time"
)

// StatusEffect is a timed condition applied to a player, ticked down by
// the game loop. Magnitude is the per-tick HP delta for the over-time
// kinds.
type StatusEffect struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind,omitempty"`
	Magnitude int       `json:"magnitude,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the effect has lapsed at the given instant.
func (e StatusEffect) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Player is the persistent player record. Vitals follow the classic
// HP/MP split plus two Mythos-specific tracks: Lucidity (sanity) and DP
// (dream presence), both drifted by the game tick.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	HP       int `json:"hp"`
	MaxHP    int `json:"max_hp"`
	MP       int `json:"mp"`
	MaxMP    int `json:"max_mp"`
	Lucidity int `json:"lucidity"`
	DP       int `json:"dp"`

	Position Position `json:"position"`
	RoomID   string   `json:"room_id"`

	Inventory []string `json:"inventory,omitempty"`

	Pose          string         `json:"pose,omitempty"`
	StatusEffects []StatusEffect `json:"status_effects,omitempty"`

	MortallyWounded bool `json:"mortally_wounded"`
	Dead            bool `json:"dead"`
	Admin           bool `json:"admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Defaults for freshly created players.
const (
	DefaultMaxHP    = 100
	DefaultMaxMP    = 50
	DefaultLucidity = 100
)

// NewPlayer creates a player record with default vitals in the given
// starting room.
func NewPlayer(name, roomID string) *Player {
	now := time.Now().UTC()
	return &Player{
		ID:        uuid.New(),
		Name:      name,
		HP:        DefaultMaxHP,
		MaxHP:     DefaultMaxHP,
		MP:        DefaultMaxMP,
		MaxMP:     DefaultMaxMP,
		Lucidity:  DefaultLucidity,
		DP:        0,
		Position:  PositionStanding,
		RoomID:    roomID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PruneEffects drops expired status effects in place and returns the
// names of the effects removed.
func (p *Player) PruneEffects(now time.Time) []string {
	var removed []string
	kept := p.StatusEffects[:0]
	for _, e := range p.StatusEffects {
		if e.Expired(now) {
			removed = append(removed, e.Name)
			continue
		}
		kept = append(kept, e)
	}
	p.StatusEffects = kept
	return removed
}

// HasEffect reports whether a named, unexpired effect is active.
func (p *Player) HasEffect(name string, now time.Time) bool {
	for _, e := range p.StatusEffects {
		if e.Name == name && !e.Expired(now) {
			return true
		}
	}
	return false
}

// ApplyEffect adds or refreshes a named status effect.
func (p *Player) ApplyEffect(name string, duration time.Duration, now time.Time) {
	for i, e := range p.StatusEffects {
		if e.Name == name {
			p.StatusEffects[i].ExpiresAt = now.Add(duration)
			return
		}
	}
	p.StatusEffects = append(p.StatusEffects, StatusEffect{
		Name:      name,
		AppliedAt: now,
		ExpiresAt: now.Add(duration),
	})
}

// PlayerRepository is the persistence boundary for player records.
// Implementations must be safe for concurrent use.
type PlayerRepository interface {
	// Get loads a player by id. Returns a CodePlayerNotFound error when
	// the record does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Player, error)

	// GetByName loads a player by exact name.
	GetByName(ctx context.Context, name string) (*Player, error)

	// Save writes a player record, creating or replacing it.
	Save(ctx context.Context, p *Player) error

	// List returns every stored player.
	List(ctx context.Context) ([]*Player, error)

	// Delete removes a player record. Deleting a missing record is not
	// an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrPlayerNotFound builds the canonical not-found error.
func ErrPlayerNotFound(key string) error {
	return oops.Code(CodePlayerNotFound).
		With("player", key).
		Errorf("player %q not found", key)
}

// IsNotFound reports whether err is a player not-found error.
func IsNotFound(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == CodePlayerNotFound
}
