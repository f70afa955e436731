// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server configures cmd/server.
type Server struct {
	Addr         string        `env:"STARBORG_ADDR" envDefault:":8081"`
	DBPath       string        `env:"STARBORG_DB_PATH" envDefault:"data/rooms.db"`
	LogLevel     string        `env:"STARBORG_LOG_LEVEL" envDefault:"info"`
	SquadPolicy  string        `env:"STARBORG_SQUAD_OVERFLOW" envDefault:"truncate"`
	WriteTimeout time.Duration `env:"STARBORG_WRITE_TIMEOUT" envDefault:"5s"`
	Telemetry    Telemetry
}

// Client configures cmd/skirmish and other room clients.
type Client struct {
	ServerURL string `env:"STARBORG_SERVER" envDefault:"http://localhost:8081"`
	Room      string `env:"STARBORG_ROOM" envDefault:"DEMO"`
	Dir       string `env:"STARBORG_CLIENT_DIR" envDefault:".starborg"`
	LogLevel  string `env:"STARBORG_LOG_LEVEL" envDefault:"info"`
	Rounds    int    `env:"STARBORG_ROUNDS" envDefault:"3"`
}

// Telemetry configures OpenTelemetry tracing. Tracing stays off unless an
// endpoint is configured.
type Telemetry struct {
	Endpoint    string `env:"STARBORG_OTEL_ENDPOINT"`
	Enabled     bool   `env:"STARBORG_OTEL_ENABLED" envDefault:"true"`
	ServiceName string `env:"STARBORG_OTEL_SERVICE" envDefault:"star-dashborg"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses and validates the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	cfg.SquadPolicy = strings.ToLower(strings.TrimSpace(cfg.SquadPolicy))
	switch cfg.SquadPolicy {
	case "truncate", "error":
	default:
		return Server{}, fmt.Errorf("STARBORG_SQUAD_OVERFLOW must be truncate or error, got %q", cfg.SquadPolicy)
	}
	if cfg.WriteTimeout <= 0 {
		return Server{}, fmt.Errorf("STARBORG_WRITE_TIMEOUT must be positive")
	}
	return cfg, nil
}

// LoadClient parses and validates the client configuration.
func LoadClient() (Client, error) {
	var cfg Client
	if err := ParseEnv(&cfg); err != nil {
		return Client{}, err
	}
	cfg.Room = strings.ToUpper(strings.TrimSpace(cfg.Room))
	if cfg.Room == "" {
		return Client{}, fmt.Errorf("STARBORG_ROOM is required")
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
