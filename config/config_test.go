package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("Agent.MaxIterations = %d, want 5", cfg.Agent.MaxIterations)
	}
	if cfg.Thumbnails.Expiry != Duration(time.Hour) {
		t.Errorf("Thumbnails.Expiry = %v, want 1h", cfg.Thumbnails.Expiry)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
agent:
  max_iterations: 3
  overall_timeout: 45s
auth:
  tokens:
    tok-abc: alice
  allow_anonymous: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Agent.MaxIterations != 3 {
		t.Errorf("Agent.MaxIterations = %d, want 3", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.OverallTimeout != Duration(45*time.Second) {
		t.Errorf("Agent.OverallTimeout = %v, want 45s", cfg.Agent.OverallTimeout)
	}
	if cfg.Auth.Tokens["tok-abc"] != "alice" {
		t.Errorf("Auth.Tokens = %v", cfg.Auth.Tokens)
	}
	if cfg.Auth.AllowAnonymous {
		t.Error("Auth.AllowAnonymous should be false")
	}
	// Unset sections keep their defaults.
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/db")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Database.ConnectionString != "postgres://env-host/db" {
		t.Errorf("ConnectionString = %q", cfg.Database.ConnectionString)
	}
}
