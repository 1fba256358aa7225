// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package store provides the persistence implementations: alias bundle
// files, the bbolt player store, and the audit sinks.
package store

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mythosmud/mythosmud/internal/command"
)

// Error codes for alias bundle persistence.
const (
	CodeBundleCorrupt    = "BUNDLE_CORRUPT"
	CodeBundleVersion    = "BUNDLE_VERSION_UNSUPPORTED"
	CodeBundleIO         = "BUNDLE_IO_FAILED"
	CodeBundlePlayerName = "BUNDLE_PLAYER_NAME_INVALID"
)

//go:embed schema/alias_bundle.schema.json
var aliasBundleSchemaJSON []byte

// AliasBundleSchemaJSON returns the embedded bundle schema document.
func AliasBundleSchemaJSON() []byte {
	out := make([]byte, len(aliasBundleSchemaJSON))
	copy(out, aliasBundleSchemaJSON)
	return out
}

// bundleFile is the on-disk JSON shape of one player's aliases.
type bundleFile struct {
	Version string      `json:"version"`
	Aliases []aliasFile `json:"aliases"`
}

type aliasFile struct {
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileBundleRepository persists alias bundles as one JSON file per
// player under a single directory. Loads validate against the embedded
// JSON schema and gate on the bundle's major version; saves go through a
// temp file and rename so a crash never leaves a torn bundle.
type FileBundleRepository struct {
	dir    string
	schema *jsonschema.Schema

	// Serializes writers per file. Coarse, but bundle saves are rare.
	mu sync.Mutex
}

// NewFileBundleRepository creates a repository rooted at dir. The
// directory must already exist; a missing directory is a hard error so
// misconfiguration surfaces at startup, not on first save.
func NewFileBundleRepository(dir string) (*FileBundleRepository, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, oops.Code(CodeBundleIO).With("dir", dir).Wrapf(err, "alias storage directory")
	}
	if !info.IsDir() {
		return nil, oops.Code(CodeBundleIO).With("dir", dir).Errorf("alias storage path is not a directory")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(aliasBundleSchemaJSON))
	if err != nil {
		return nil, oops.Wrapf(err, "parse embedded bundle schema")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("alias_bundle.schema.json", doc); err != nil {
		return nil, oops.Wrapf(err, "register bundle schema")
	}
	schema, err := compiler.Compile("alias_bundle.schema.json")
	if err != nil {
		return nil, oops.Wrapf(err, "compile bundle schema")
	}

	return &FileBundleRepository{dir: dir, schema: schema}, nil
}

// bundlePath maps a player name to its bundle file. Names are validated
// before touching the filesystem so a crafted name cannot escape dir.
func (r *FileBundleRepository) bundlePath(playerName string) (string, error) {
	if err := command.ValidatePlayerName(playerName); err != nil {
		return "", oops.Code(CodeBundlePlayerName).With("player", playerName).Wrap(err)
	}
	return filepath.Join(r.dir, strings.ToLower(playerName)+"_aliases.json"), nil
}

// Load reads and validates a player's bundle. A missing file is an empty
// bundle; a present but invalid file is an error for the caller to
// quarantine.
func (r *FileBundleRepository) Load(_ context.Context, playerName string) (command.Bundle, error) {
	path, err := r.bundlePath(playerName)
	if err != nil {
		return command.Bundle{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return command.Bundle{Version: command.BundleVersion}, nil
	}
	if err != nil {
		return command.Bundle{}, oops.Code(CodeBundleIO).With("path", path).Wrapf(err, "read alias bundle")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return command.Bundle{}, oops.Code(CodeBundleCorrupt).With("path", path).Wrapf(err, "parse alias bundle")
	}
	if err := r.schema.Validate(inst); err != nil {
		return command.Bundle{}, oops.Code(CodeBundleCorrupt).With("path", path).Wrapf(err, "alias bundle failed schema validation")
	}

	var bf bundleFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return command.Bundle{}, oops.Code(CodeBundleCorrupt).With("path", path).Wrap(err)
	}

	if err := checkBundleVersion(bf.Version); err != nil {
		return command.Bundle{}, oops.With("path", path).Wrap(err)
	}

	b := command.Bundle{Version: bf.Version}
	for _, a := range bf.Aliases {
		b.Aliases = append(b.Aliases, command.Alias{
			Name:      a.Name,
			Body:      a.Command,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return b, nil
}

// Save writes the bundle atomically: marshal, write to a temp file in
// the same directory, fsync, rename over the target.
func (r *FileBundleRepository) Save(_ context.Context, playerName string, b command.Bundle) error {
	path, err := r.bundlePath(playerName)
	if err != nil {
		return err
	}

	bf := bundleFile{Version: b.Version, Aliases: []aliasFile{}}
	if bf.Version == "" {
		bf.Version = command.BundleVersion
	}
	for _, a := range b.Aliases {
		bf.Aliases = append(bf.Aliases, aliasFile{
			Name:      a.Name,
			Command:   a.Body,
			CreatedAt: a.CreatedAt.UTC(),
			UpdatedAt: a.UpdatedAt.UTC(),
		})
	}

	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return oops.Code(CodeBundleIO).With("player", playerName).Wrapf(err, "marshal alias bundle")
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, ".bundle-*.tmp")
	if err != nil {
		return oops.Code(CodeBundleIO).With("path", path).Wrapf(err, "create temp bundle")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return oops.Code(CodeBundleIO).With("path", path).Wrapf(err, "write temp bundle")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return oops.Code(CodeBundleIO).With("path", path).Wrapf(err, "sync temp bundle")
	}
	if err := tmp.Close(); err != nil {
		return oops.Code(CodeBundleIO).With("path", path).Wrapf(err, "close temp bundle")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return oops.Code(CodeBundleIO).With("path", path).Wrapf(err, "replace alias bundle")
	}
	return nil
}

// checkBundleVersion accepts any bundle whose major version is 1.
func checkBundleVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return oops.Code(CodeBundleVersion).With("version", version).Wrapf(err, "parse bundle version")
	}
	if v.Major() != 1 {
		return oops.Code(CodeBundleVersion).
			With("version", version).
			Errorf("unsupported bundle major version %d", v.Major())
	}
	return nil
}
