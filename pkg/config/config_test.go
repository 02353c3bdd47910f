package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Generation.SectionTarget != DefaultSectionTarget {
		t.Errorf("SectionTarget = %d, want %d", cfg.Generation.SectionTarget, DefaultSectionTarget)
	}
	if cfg.RetryPolicy.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.RetryPolicy.MaxRetries, DefaultMaxRetries)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookflow.yaml")
	content := `
generation:
  model: test-model
  section_target: 3
  timeout: 45s
retry_policy:
  max_retries: 5
worker:
  max_parallel: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Generation.Model != "test-model" {
		t.Errorf("Model = %q", cfg.Generation.Model)
	}
	if cfg.Generation.SectionTarget != 3 {
		t.Errorf("SectionTarget = %d", cfg.Generation.SectionTarget)
	}
	if cfg.Generation.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Generation.Timeout)
	}
	if cfg.RetryPolicy.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", cfg.RetryPolicy.MaxRetries)
	}
	// Unset fields keep defaults.
	if cfg.RetryPolicy.Multiplier != DefaultBackoffMultiplier {
		t.Errorf("Multiplier = %v", cfg.RetryPolicy.Multiplier)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOOKFLOW_MODEL", "env-model")
	t.Setenv("BOOKFLOW_SECTION_TARGET", "7")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://example.test/hook")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Generation.Model != "env-model" {
		t.Errorf("Model = %q", cfg.Generation.Model)
	}
	if cfg.Generation.SectionTarget != 7 {
		t.Errorf("SectionTarget = %d", cfg.Generation.SectionTarget)
	}
	if !cfg.Notify.Teams.Enabled || cfg.Notify.Teams.WebhookURL != "https://example.test/hook" {
		t.Errorf("Teams config not applied: %+v", cfg.Notify.Teams)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero section target", func(c *Config) { c.Generation.SectionTarget = 0 }},
		{"zero timeout", func(c *Config) { c.Generation.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.RetryPolicy.MaxRetries = -1 }},
		{"multiplier below one", func(c *Config) { c.RetryPolicy.Multiplier = 0.5 }},
		{"zero parallel", func(c *Config) { c.Worker.MaxParallel = 0 }},
		{"empty db path", func(c *Config) { c.Storage.Path = " " }},
		{"bad log level", func(c *Config) { c.Logging.MinLevel = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
