// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

// Package config loads server configuration. Precedence, lowest to
// highest: built-in defaults, the YAML config file, command-line flags,
// and the small environment contract (ALIASES_DIR, SERVER_LOG,
// DATABASE_URL, NATS_URL).
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Error codes for configuration failures.
const (
	CodeConfigLoad    = "CONFIG_LOAD_FAILED"
	CodeConfigInvalid = "CONFIG_INVALID"
)

// Config is the full server configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Paths    Paths    `koanf:"paths"`
	Game     Game     `koanf:"game"`
	Session  Session  `koanf:"session"`
	Database Database `koanf:"database"`
	NATS     NATS     `koanf:"nats"`
	Logging  Logging  `koanf:"logging"`
}

// Server holds the listener addresses and greeting.
type Server struct {
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	MOTD        string `koanf:"motd"`
	StartRoom   string `koanf:"start_room"`
}

// Paths names the filesystem inputs the server reads and writes.
type Paths struct {
	// AliasesDir is where per-player alias bundles live. Required.
	AliasesDir string `koanf:"aliases_dir"`
	// PlayerDB is the bbolt player store file.
	PlayerDB string `koanf:"player_db"`
	// AuditLog is the JSONL audit sink file.
	AuditLog string `koanf:"audit_log"`
	// ZonesDir holds zone YAML files.
	ZonesDir string `koanf:"zones_dir"`
	// NPCs is the NPC archetype YAML file. Optional.
	NPCs string `koanf:"npcs"`
	// Credentials is the bearer-token credentials file.
	Credentials string `koanf:"credentials"`
	// ServerLog redirects logging from stderr to a file when set.
	ServerLog string `koanf:"server_log"`
}

// Game tunes the tick loop and command pipeline.
type Game struct {
	TickInterval     time.Duration `koanf:"tick_interval"`
	MaxCommandLength int           `koanf:"max_command_length"`
	CommandTimeout   time.Duration `koanf:"command_timeout"`
	RespawnDelay     uint64        `koanf:"respawn_delay_ticks"`
}

// Session tunes the connection manager.
type Session struct {
	DisconnectGraceSeconds int `koanf:"disconnect_grace_seconds"`
	RestCountdown          int `koanf:"rest_countdown"`
}

// Database configures the optional postgres audit sink.
type Database struct {
	URL string `koanf:"url"`
}

// NATS configures the optional event forwarder.
type NATS struct {
	URL string `koanf:"url"`
}

// Logging selects the log format and level.
type Logging struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.listen_addr":               ":4000",
		"server.metrics_addr":              ":9090",
		"server.motd":                      "",
		"server.start_room":                "",
		"paths.aliases_dir":                "",
		"paths.player_db":                  "data/players.db",
		"paths.audit_log":                  "data/audit.jsonl",
		"paths.zones_dir":                  "data/zones",
		"paths.npcs":                       "",
		"paths.credentials":                "data/credentials.yaml",
		"paths.server_log":                 "",
		"game.tick_interval":               "1s",
		"game.max_command_length":          1000,
		"game.command_timeout":             "30s",
		"game.respawn_delay_ticks":         30,
		"session.disconnect_grace_seconds": 30,
		"session.rest_countdown":           10,
		"database.url":                     "",
		"nats.url":                         "",
		"logging.format":                   "text",
		"logging.level":                    "info",
	}
}

// Load builds the configuration. path and flags may be empty/nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code(CodeConfigLoad).Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeConfigLoad).
				With("path", path).
				Wrapf(err, "loading config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code(CodeConfigLoad).Wrapf(err, "loading flags")
		}
	}

	applyEnv(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeConfigLoad).Wrapf(err, "unmarshaling config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays the environment contract on top of file and flags.
func applyEnv(k *koanf.Koanf) {
	for env, key := range map[string]string{
		"ALIASES_DIR":  "paths.aliases_dir",
		"SERVER_LOG":   "paths.server_log",
		"DATABASE_URL": "database.url",
		"NATS_URL":     "nats.url",
	} {
		if v := os.Getenv(env); v != "" {
			_ = k.Set(key, v)
		}
	}
}

func (c *Config) validate() error {
	if c.Paths.AliasesDir == "" {
		return oops.Code(CodeConfigInvalid).
			Errorf("aliases directory is required: set ALIASES_DIR or paths.aliases_dir")
	}
	if c.Game.TickInterval <= 0 {
		return oops.Code(CodeConfigInvalid).
			With("tick_interval", c.Game.TickInterval.String()).
			Errorf("tick interval must be positive")
	}
	if c.Game.MaxCommandLength <= 0 {
		return oops.Code(CodeConfigInvalid).Errorf("max command length must be positive")
	}
	if c.Session.DisconnectGraceSeconds < 0 {
		return oops.Code(CodeConfigInvalid).Errorf("disconnect grace cannot be negative")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return oops.Code(CodeConfigInvalid).
			With("format", c.Logging.Format).
			Errorf("logging format must be json or text")
	}
	return nil
}

// DisconnectGrace returns the grace period as a duration.
func (c *Config) DisconnectGrace() time.Duration {
	return time.Duration(c.Session.DisconnectGraceSeconds) * time.Second
}
