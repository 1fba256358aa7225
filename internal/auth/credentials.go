// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package auth

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Identity is the authenticated principal resolved from a bearer token.
type Identity struct {
	PlayerID   uuid.UUID
	PlayerName string
	Admin      bool
}

// TokenVerifier resolves an opaque bearer token to a player identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ErrInvalidToken is returned when no credential matches the token.
var ErrInvalidToken = oops.Code("AUTH_INVALID_TOKEN").Errorf("invalid token")

type credentialsFile struct {
	Players []credentialEntry `yaml:"players"`
}

type credentialEntry struct {
	Name      string `yaml:"name"`
	ID        string `yaml:"id"`
	TokenHash string `yaml:"token_hash"`
	Admin     bool   `yaml:"admin"`
}

type credential struct {
	identity  Identity
	tokenHash string
}

// CredentialStore verifies tokens against a static credentials file
// loaded at startup. Entries map player name to a player id and an
// argon2id token digest.
type CredentialStore struct {
	hasher      Hasher
	credentials []credential
}

// LoadCredentials reads and validates a YAML credentials file.
func LoadCredentials(path string, hasher Hasher) (*CredentialStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("AUTH_CREDENTIALS_IO").Wrapf(err, "reading credentials file %s", path)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, oops.Code("AUTH_CREDENTIALS_PARSE").Wrapf(err, "parsing credentials file %s", path)
	}

	store := &CredentialStore{hasher: hasher}
	seen := make(map[string]struct{}, len(file.Players))
	for _, entry := range file.Players {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, oops.Code("AUTH_CREDENTIALS_PARSE").Errorf("credential entry with empty name")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, oops.Code("AUTH_CREDENTIALS_PARSE").Errorf("duplicate credential entry for %s", name)
		}
		seen[key] = struct{}{}

		id, err := uuid.Parse(entry.ID)
		if err != nil {
			return nil, oops.Code("AUTH_CREDENTIALS_PARSE").Wrapf(err, "credential entry %s has invalid player id", name)
		}
		if !strings.HasPrefix(entry.TokenHash, "$argon2id$") {
			return nil, oops.Code("AUTH_CREDENTIALS_PARSE").Errorf("credential entry %s has non-argon2id token hash", name)
		}

		store.credentials = append(store.credentials, credential{
			identity: Identity{
				PlayerID:   id,
				PlayerName: name,
				Admin:      entry.Admin,
			},
			tokenHash: entry.TokenHash,
		})
	}
	return store, nil
}

// Verify checks the token against every credential. Tokens are opaque,
// so there is no name to look up first; the file is small enough that
// a linear scan is fine.
func (s *CredentialStore) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	for _, cred := range s.credentials {
		if err := ctx.Err(); err != nil {
			return Identity{}, oops.Code("AUTH_CANCELLED").Wrap(err)
		}
		ok, err := s.hasher.Verify(token, cred.tokenHash)
		if err != nil {
			return Identity{}, err
		}
		if ok {
			return cred.identity, nil
		}
	}
	return Identity{}, ErrInvalidToken
}

// Count reports how many credentials are loaded.
func (s *CredentialStore) Count() int {
	return len(s.credentials)
}
