package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load server: %v", err)
	}
	if cfg.Addr != ":8081" {
		t.Fatalf("expected default addr :8081, got %q", cfg.Addr)
	}
	if cfg.SquadPolicy != "truncate" {
		t.Fatalf("expected truncate policy, got %q", cfg.SquadPolicy)
	}
	if cfg.WriteTimeout != 5*time.Second {
		t.Fatalf("expected 5s write timeout, got %s", cfg.WriteTimeout)
	}
	if cfg.Telemetry.Endpoint != "" {
		t.Fatalf("expected tracing endpoint to default empty, got %q", cfg.Telemetry.Endpoint)
	}
}

func TestLoadServerRejectsUnknownSquadPolicy(t *testing.T) {
	t.Setenv("STARBORG_SQUAD_OVERFLOW", "explode")

	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadServerParseError(t *testing.T) {
	t.Setenv("STARBORG_WRITE_TIMEOUT", "soon")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadClientNormalizesRoom(t *testing.T) {
	t.Setenv("STARBORG_ROOM", "  xk7q ")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if cfg.Room != "XK7Q" {
		t.Fatalf("expected room XK7Q, got %q", cfg.Room)
	}
	if cfg.Rounds != 3 {
		t.Fatalf("expected 3 rounds, got %d", cfg.Rounds)
	}
}

func TestLoadClientRequiresRoom(t *testing.T) {
	t.Setenv("STARBORG_ROOM", "   ")

	if _, err := LoadClient(); err == nil {
		t.Fatal("expected error for blank room")
	}
}
