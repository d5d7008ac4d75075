package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BackendConfig names one agent backend and its invocation defaults.
type BackendConfig struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Enabled bool              `yaml:"enabled"`
}

// OrchestratorConfig is the orchestrator's own tunable parameters: layer
// parallelism, the registered agent backends, and worktree pool limits.
type OrchestratorConfig struct {
	Parallelism    int             `yaml:"parallelism"`
	Backends       []BackendConfig `yaml:"backends"`
	MaxAgeSecs     int64           `yaml:"max_age_secs"`
	MaxPerRepo     int             `yaml:"max_per_repo"`
	DefaultRemote  string          `yaml:"default_remote"`
	SweepIntervalS int             `yaml:"sweep_interval_secs"`
}

func defaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Parallelism:    4,
		MaxAgeSecs:     int64((24 * 3600)),
		MaxPerRepo:     20,
		DefaultRemote:  "origin",
		SweepIntervalS: 300,
		Backends: []BackendConfig{
			{Name: "claude", Command: "claude", Enabled: true},
		},
	}
}

// LoadOrchestratorConfig reads path (if it exists) and overlays it onto
// defaults. A missing file is not an error: defaults apply.
func LoadOrchestratorConfig(path string) (OrchestratorConfig, error) {
	cfg := defaultOrchestratorConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read orchestrator config %s: %w", path, err)
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse orchestrator config %s: %w", path, err)
	}
	normalizeOrchestratorConfig(&cfg)
	return cfg, nil
}

func normalizeOrchestratorConfig(cfg *OrchestratorConfig) {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.MaxAgeSecs <= 0 {
		cfg.MaxAgeSecs = 24 * 3600
	}
	if cfg.MaxPerRepo <= 0 {
		cfg.MaxPerRepo = 20
	}
	if cfg.DefaultRemote == "" {
		cfg.DefaultRemote = "origin"
	}
	if cfg.SweepIntervalS <= 0 {
		cfg.SweepIntervalS = 300
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = []BackendConfig{{Name: "claude", Command: "claude", Enabled: true}}
	}
}
