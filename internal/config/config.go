// ABOUTME: Configuration loading and parsing for coven-chat
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
	"golang.org/x/crypto/bcrypt"
)

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "COVEN_CHAT_CONFIG"

// Defaults applied before a file is read.
const (
	DefaultDatabasePath   = "~/.local/share/coven/chat.db"
	DefaultDriver         = "sqlite"
	DefaultHistoryLimit   = 50
	DefaultPollInterval   = 8 * time.Second
	DefaultSessionTTL     = 30 * 24 * time.Hour
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
	defaultBcryptCost     = bcrypt.DefaultCost
	defaultConfigFileName = "chat.yaml"
)

// Config represents the complete coven-chat configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Chat     ChatConfig     `yaml:"chat" toml:"chat"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path   string `yaml:"path" toml:"path"`
	Driver string `yaml:"driver" toml:"driver"` // sqlite (modernc) or sqlite3 (mattn)
}

// ChatConfig holds history and refresh settings
type ChatConfig struct {
	HistoryLimit int           `yaml:"history_limit" toml:"history_limit"`
	PollInterval time.Duration `yaml:"-" toml:"-"`
	SessionTTL   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	PollIntervalRaw string `yaml:"poll_interval" toml:"poll_interval"`
	SessionTTLRaw   string `yaml:"session_ttl" toml:"session_ttl"`
}

// AuthConfig holds password hashing configuration
type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a usable configuration for when no file exists.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:   expandHome(DefaultDatabasePath),
			Driver: DefaultDriver,
		},
		Chat: ChatConfig{
			HistoryLimit:    DefaultHistoryLimit,
			PollInterval:    DefaultPollInterval,
			SessionTTL:      DefaultSessionTTL,
			PollIntervalRaw: DefaultPollInterval.String(),
			SessionTTLRaw:   DefaultSessionTTL.String(),
		},
		Auth: AuthConfig{
			BcryptCost: defaultBcryptCost,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML; anything else as YAML.
// Keys absent from the file keep their Default values.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.Database.Path = expandHome(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// DefaultPath returns where the config file is looked for:
// $COVEN_CHAT_CONFIG, then $XDG_CONFIG_HOME/coven/chat.yaml, then ~/.config/coven/chat.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), defaultConfigFileName)
}

// ConfigDir returns the coven config directory honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "coven")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "coven")
	}
	return filepath.Join(home, ".config", "coven")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}

	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be positive")
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat.poll_interval must be positive")
	}
	if c.Chat.SessionTTL <= 0 {
		return fmt.Errorf("chat.session_ttl must be positive")
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Chat.PollIntervalRaw != "" {
		cfg.Chat.PollInterval, err = time.ParseDuration(cfg.Chat.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Chat.PollIntervalRaw, err)
		}
	}

	if cfg.Chat.SessionTTLRaw != "" {
		cfg.Chat.SessionTTL, err = time.ParseDuration(cfg.Chat.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Chat.SessionTTLRaw, err)
		}
	}

	return nil
}
