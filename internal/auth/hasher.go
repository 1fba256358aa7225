// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package auth verifies the opaque bearer credentials presented at
// session open. Token issuance lives outside this server; the runtime
// only checks tokens against argon2id digests from the credentials
// file.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters, per OWASP guidance.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// ErrEmptyToken is returned when hashing an empty token.
var ErrEmptyToken = oops.Code("AUTH_EMPTY_TOKEN").Errorf("token cannot be empty")

// Hasher hashes and verifies bearer tokens.
type Hasher interface {
	Hash(token string) (string, error)
	Verify(token, encodedHash string) (bool, error)
}

// Argon2idHasher implements Hasher with argon2id in PHC string format.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a hasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces a PHC-formatted argon2id digest of the token:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<digest>.
func (h *Argon2idHasher) Hash(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	digest := argon2.IDKey([]byte(token), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify checks the token against a PHC digest in constant time.
// Returns (false, nil) on mismatch; an error only for malformed hashes.
func (h *Argon2idHasher) Verify(token, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("not an argon2id PHC string")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(expected) == 0 || len(expected) > 1<<10 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid digest length: %d", len(expected))
	}

	computed := argon2.IDKey([]byte(token), salt, time, memory, uint8(threads), uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
