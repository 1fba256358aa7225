// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithRequiredEnv(t *testing.T) {
	t.Setenv("ALIASES_DIR", "/tmp/aliases")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Server.ListenAddr)
	assert.Equal(t, "/tmp/aliases", cfg.Paths.AliasesDir)
	assert.Equal(t, time.Second, cfg.Game.TickInterval)
	assert.Equal(t, 1000, cfg.Game.MaxCommandLength)
	assert.Equal(t, 30*time.Second, cfg.DisconnectGrace())
}

func TestMissingAliasesDirIsFatal(t *testing.T) {
	t.Setenv("ALIASES_DIR", "")

	_, err := Load("", nil)
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, CodeConfigInvalid, oopsErr.Code())
}

func TestFileOverridesDefaults(t *testing.T) {
	t.Setenv("ALIASES_DIR", "/tmp/aliases")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: ":5555"
  motd: "Ia! Ia!"
game:
  tick_interval: 250ms
logging:
  format: json
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":5555", cfg.Server.ListenAddr)
	assert.Equal(t, "Ia! Ia!", cfg.Server.MOTD)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.TickInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestFlagsOverrideFile(t *testing.T) {
	t.Setenv("ALIASES_DIR", "/tmp/aliases")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen_addr: \":5555\"\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server.listen_addr", "", "listen address")
	require.NoError(t, flags.Parse([]string{"--server.listen_addr", ":6666"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":6666", cfg.Server.ListenAddr)
}

func TestEnvOverridesEverything(t *testing.T) {
	t.Setenv("ALIASES_DIR", "/env/aliases")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("SERVER_LOG", "/var/log/mythosmud.log")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
paths:
  aliases_dir: /file/aliases
database:
  url: postgres://file/db
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/env/aliases", cfg.Paths.AliasesDir)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	assert.Equal(t, "/var/log/mythosmud.log", cfg.Paths.ServerLog)
}

func TestInvalidValuesRejected(t *testing.T) {
	t.Setenv("ALIASES_DIR", "/tmp/aliases")

	cases := map[string]string{
		"zero tick":   "game:\n  tick_interval: 0s\n",
		"bad format":  "logging:\n  format: xml\n",
		"neg grace":   "session:\n  disconnect_grace_seconds: -1\n",
		"zero maxlen": "game:\n  max_command_length: 0\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path, nil)
		assert.Error(t, err, name)
	}
}

func TestMissingConfigFileIsAnError(t *testing.T) {
	t.Setenv("ALIASES_DIR", "/tmp/aliases")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}
