package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Terminal  TerminalConfig  `toml:"terminal"`
	Store     StoreConfig     `toml:"store"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	// Socket is the unix socket path the control API listens on.
	Socket string `envconfig:"PTYHOST_SOCKET" toml:"socket"`
	// Addr is an optional loopback TCP address, e.g. "127.0.0.1:7681".
	Addr string `envconfig:"PTYHOST_ADDR" toml:"addr"`
}

// TerminalConfig holds session manager configuration.
type TerminalConfig struct {
	Shell          string        `envconfig:"PTYHOST_SHELL" toml:"shell"`
	UseMultiplexer bool          `envconfig:"PTYHOST_USE_MULTIPLEXER" default:"true" toml:"use_multiplexer"`
	TmuxBin        string        `envconfig:"PTYHOST_TMUX_BIN" default:"tmux" toml:"tmux_bin"`
	Namespace      string        `envconfig:"PTYHOST_NAMESPACE" default:"ph-" toml:"namespace"`
	HistoryLimit   int           `envconfig:"PTYHOST_HISTORY_LIMIT" default:"50000" toml:"history_limit"`
	ReadBuffer     int           `envconfig:"PTYHOST_READ_BUFFER" default:"4096" toml:"read_buffer"`
	ExitGrace      time.Duration `envconfig:"PTYHOST_EXIT_GRACE" default:"500ms" toml:"exit_grace"`
	MarkerEnv      string        `envconfig:"PTYHOST_MARKER_ENV" default:"PTYHOST" toml:"marker_env"`
}

// StoreConfig holds descriptor persistence configuration.
type StoreConfig struct {
	Path string `envconfig:"PTYHOST_DB" toml:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration for the control API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"200" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"400" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.fillPaths()
	return &cfg, nil
}

// LoadFile loads configuration from the environment, then overlays the TOML
// file at path. Keys present in the file win.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillPaths()
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Terminal: TerminalConfig{
			UseMultiplexer: true,
			TmuxBin:        "tmux",
			Namespace:      "ph-",
			HistoryLimit:   50000,
			ReadBuffer:     4096,
			ExitGrace:      500 * time.Millisecond,
			MarkerEnv:      "PTYHOST",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 200,
			Burst:             400,
			Enabled:           true,
		},
	}
	cfg.fillPaths()
	return cfg
}

// fillPaths derives unset paths from the user's state directory.
func (c *Config) fillPaths() {
	if c.Server.Socket != "" && c.Store.Path != "" {
		return
	}
	dir := StateDir()
	if c.Server.Socket == "" {
		c.Server.Socket = filepath.Join(dir, "ptyhost.sock")
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(dir, "ptyhost.db")
	}
}

// StateDir returns the directory holding the socket and database.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "ptyhost")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "ptyhost")
	}
	return filepath.Join(os.TempDir(), "ptyhost")
}
