package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Planner   PlannerConfig
	Terminal  TerminalConfig
	Install   InstallConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8100"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// PlannerConfig holds remote planner service configuration.
type PlannerConfig struct {
	BaseURL string        `envconfig:"PLANNER_URL" default:"http://localhost:8200"`
	Timeout time.Duration `envconfig:"PLANNER_TIMEOUT" default:"30s"`
}

// TerminalConfig holds PTY session configuration.
type TerminalConfig struct {
	Shell      string `envconfig:"TERMINAL_SHELL" default:""`
	WorkingDir string `envconfig:"TERMINAL_WORKING_DIR" default:""`
	Cols       int    `envconfig:"TERMINAL_COLS" default:"80"`
	Rows       int    `envconfig:"TERMINAL_ROWS" default:"24"`
}

// InstallConfig holds installation orchestrator configuration.
type InstallConfig struct {
	// Transport selects how command keystrokes reach the shell:
	// "local" drives an in-process PTY, "ws" dials a remote session host.
	Transport string `envconfig:"INSTALL_TRANSPORT" default:"local"`
	// SessionWSURL is the websocket URL template for remote sessions.
	// The session ID is appended as the final path segment.
	SessionWSURL string `envconfig:"INSTALL_SESSION_WS_URL" default:"ws://localhost:8100/ws/terminal"`
	// StabilizeDelay is how long to let the shell's input buffer settle
	// after a prompt before reporting a queued result.
	StabilizeDelay time.Duration `envconfig:"INSTALL_STABILIZE_DELAY" default:"1s"`
	// SafetyTimeout force-reports a pending result when no prompt marker
	// arrives (shells without shell integration installed).
	SafetyTimeout time.Duration `envconfig:"INSTALL_SAFETY_TIMEOUT" default:"2s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
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
	return &Config{
		Server: ServerConfig{
			Port: "8100",
			Host: "0.0.0.0",
		},
		Planner: PlannerConfig{
			BaseURL: "http://localhost:8200",
			Timeout: 30 * time.Second,
		},
		Terminal: TerminalConfig{
			Cols: 80,
			Rows: 24,
		},
		Install: InstallConfig{
			Transport:      "local",
			SessionWSURL:   "ws://localhost:8100/ws/terminal",
			StabilizeDelay: time.Second,
			SafetyTimeout:  2 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
