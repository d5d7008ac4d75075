package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/basket/murmur/internal/config"
)

func TestLoadOrchestratorConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadOrchestratorConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Parallelism != 4 {
		t.Fatalf("expected default parallelism 4, got %d", cfg.Parallelism)
	}
	if len(cfg.Backends) != 1 || cfg.Backends[0].Name != "claude" {
		t.Fatalf("expected default claude backend, got %v", cfg.Backends)
	}
}

func TestLoadOrchestratorConfig_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
parallelism: 8
max_per_repo: 5
backends:
  - name: claude
    command: claude
    enabled: true
  - name: cursor
    command: cursor-agent
    enabled: false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadOrchestratorConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Parallelism != 8 {
		t.Fatalf("expected parallelism 8, got %d", cfg.Parallelism)
	}
	if cfg.MaxPerRepo != 5 {
		t.Fatalf("expected max_per_repo 5, got %d", cfg.MaxPerRepo)
	}
	if len(cfg.Backends) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(cfg.Backends))
	}
	// Defaults still apply to fields absent from the file.
	if cfg.DefaultRemote != "origin" {
		t.Fatalf("expected default remote origin, got %s", cfg.DefaultRemote)
	}
}

func TestLoadOrchestratorConfig_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadOrchestratorConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Parallelism != 4 {
		t.Fatalf("expected default parallelism, got %d", cfg.Parallelism)
	}
}

func TestLoadOrchestratorConfig_NegativeParallelismNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("parallelism: -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadOrchestratorConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Parallelism != 4 {
		t.Fatalf("expected normalized parallelism 4, got %d", cfg.Parallelism)
	}
}
