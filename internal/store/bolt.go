// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	bolt "go.etcd.io/bbolt"

	"github.com/mythosmud/mythosmud/internal/world"
)

var (
	playersBucket     = []byte("players")
	playerNamesBucket = []byte("player_names")
)

// BoltPlayerStore persists player records in a bbolt file: one bucket of
// records keyed by player id, one index bucket mapping lowercased name
// to id.
type BoltPlayerStore struct {
	db *bolt.DB
}

// OpenBoltPlayerStore opens (creating if needed) the player database at
// path and ensures the buckets exist.
func OpenBoltPlayerStore(path string) (*BoltPlayerStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, oops.Code(CodePlayerDB).With("path", path).Wrapf(err, "open player database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(playersBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(playerNamesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, oops.Code(CodePlayerDB).With("path", path).Wrapf(err, "create player buckets")
	}

	return &BoltPlayerStore{db: db}, nil
}

// CodePlayerDB marks player database failures.
const CodePlayerDB = "PLAYER_DB_FAILED"

// Close closes the underlying database.
func (s *BoltPlayerStore) Close() error {
	return s.db.Close()
}

// Get loads a player by id.
func (s *BoltPlayerStore) Get(_ context.Context, id uuid.UUID) (*world.Player, error) {
	var p *world.Player
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(playersBucket).Get([]byte(id.String()))
		if data == nil {
			return world.ErrPlayerNotFound(id.String())
		}
		var decoded world.Player
		if err := json.Unmarshal(data, &decoded); err != nil {
			return oops.Code(CodePlayerDB).With("player_id", id.String()).Wrapf(err, "decode player record")
		}
		p = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByName loads a player by name via the name index. Lookup is
// case-insensitive.
func (s *BoltPlayerStore) GetByName(ctx context.Context, name string) (*world.Player, error) {
	var id uuid.UUID
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(playerNamesBucket).Get([]byte(strings.ToLower(name)))
		if data == nil {
			return world.ErrPlayerNotFound(name)
		}
		parsed, err := uuid.ParseBytes(data)
		if err != nil {
			return oops.Code(CodePlayerDB).With("player", name).Wrapf(err, "corrupt name index entry")
		}
		id = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Save writes a player record and its name index entry in one
// transaction. A rename replaces the old index entry.
func (s *BoltPlayerStore) Save(_ context.Context, p *world.Player) error {
	if p == nil {
		return oops.Code(CodePlayerDB).Errorf("cannot save nil player")
	}
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return oops.Code(CodePlayerDB).With("player_id", p.ID.String()).Wrapf(err, "encode player record")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		players := tx.Bucket(playersBucket)
		names := tx.Bucket(playerNamesBucket)
		key := []byte(p.ID.String())

		// Drop a stale name index entry if the player was renamed.
		if prev := players.Get(key); prev != nil {
			var old world.Player
			if err := json.Unmarshal(prev, &old); err == nil && !strings.EqualFold(old.Name, p.Name) {
				if err := names.Delete([]byte(strings.ToLower(old.Name))); err != nil {
					return err
				}
			}
		}

		if err := players.Put(key, data); err != nil {
			return err
		}
		return names.Put([]byte(strings.ToLower(p.Name)), key)
	})
}

// List returns every stored player.
func (s *BoltPlayerStore) List(_ context.Context) ([]*world.Player, error) {
	var players []*world.Player
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(playersBucket).ForEach(func(k, v []byte) error {
			var p world.Player
			if err := json.Unmarshal(v, &p); err != nil {
				return oops.Code(CodePlayerDB).With("key", string(k)).Wrapf(err, "decode player record")
			}
			players = append(players, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}

// Delete removes a player record and its name index entry. Deleting a
// missing record succeeds.
func (s *BoltPlayerStore) Delete(_ context.Context, id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		players := tx.Bucket(playersBucket)
		key := []byte(id.String())

		if data := players.Get(key); data != nil {
			var p world.Player
			if err := json.Unmarshal(data, &p); err == nil {
				if err := tx.Bucket(playerNamesBucket).Delete([]byte(strings.ToLower(p.Name))); err != nil {
					return err
				}
			}
		}
		return players.Delete(key)
	})
}
