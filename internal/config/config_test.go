// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "chat.yaml", `
database:
  path: "/tmp/chat.db"
  driver: "sqlite3"
chat:
  history_limit: 100
  poll_interval: "3s"
  session_ttl: "1h"
auth:
  bcrypt_cost: 12
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/chat.db", cfg.Database.Path)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Chat.HistoryLimit)
	assert.Equal(t, 3*time.Second, cfg.Chat.PollInterval)
	assert.Equal(t, time.Hour, cfg.Chat.SessionTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "chat.toml", `
[database]
path = "/tmp/chat.db"

[chat]
poll_interval = "5s"
history_limit = 20

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/chat.db", cfg.Database.Path)
	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Chat.PollInterval)
	assert.Equal(t, 20, cfg.Chat.HistoryLimit)
	assert.Equal(t, DefaultSessionTTL, cfg.Chat.SessionTTL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingKeysKeepDefaults(t *testing.T) {
	path := writeConfig(t, "chat.yaml", `
database:
  path: "/tmp/chat.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultHistoryLimit, cfg.Chat.HistoryLimit)
	assert.Equal(t, DefaultPollInterval, cfg.Chat.PollInterval)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_CHAT_DB", "/data/chat.db")
	t.Setenv("TEST_POLL", "2s")

	path := writeConfig(t, "chat.yaml", `
database:
  path: "${TEST_CHAT_DB}"
chat:
  poll_interval: "${TEST_POLL}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/chat.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Second, cfg.Chat.PollInterval)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, "chat.yaml", `
database:
  path: "~/chat/chat.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "chat", "chat.db"), cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad duration", "c.yaml", "chat:\n  poll_interval: \"soon\"\n", "poll_interval"},
		{"bad yaml", "c.yaml", "database: [unclosed\n", "parsing config file"},
		{"bad toml", "c.toml", "[database\n", "parsing config file"},
		{"unknown driver", "c.yaml", "database:\n  driver: \"postgres\"\n", "database.driver"},
		{"zero history", "c.yaml", "chat:\n  history_limit: 0\n", "history_limit"},
		{"bcrypt cost", "c.yaml", "auth:\n  bcrypt_cost: 99\n", "bcrypt_cost"},
		{"log level", "c.yaml", "logging:\n  level: \"loud\"\n", "logging.level"},
		{"log format", "c.yaml", "logging:\n  format: \"xml\"\n", "logging.format"},
		{"empty path", "c.yaml", "database:\n  path: \"${UNSET_CHAT_VAR_XYZ}\"\n", "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, cfg.Chat.HistoryLimit)

	_, err = LoadOrDefault(writeConfig(t, "c.yaml", "chat:\n  history_limit: -1\n"))
	assert.Error(t, err, "an invalid file is still an error")
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/coven/chat.toml")
	assert.Equal(t, "/etc/coven/chat.toml", DefaultPath())

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "coven", "chat.yaml"), DefaultPath())

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".config", "coven", "chat.yaml"), DefaultPath())
}
