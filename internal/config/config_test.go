package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()

	if th.Pattern.MinLogCount != 10 {
		t.Fatalf("expected default min log count 10, got %d", th.Pattern.MinLogCount)
	}
	if th.Pattern.ConfidenceThreshold != 0.6 {
		t.Fatalf("expected confidence threshold 0.6, got %f", th.Pattern.ConfidenceThreshold)
	}
	if th.Windows.Padding != 10*time.Minute {
		t.Fatalf("expected 10m window padding, got %v", th.Windows.Padding)
	}
	if th.Correlation.MaxFields <= 0 || th.Correlation.MaxKendallSamples <= 0 {
		t.Fatalf("pair-loop caps must be positive: %+v", th.Correlation)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  address: ":9999"
analysis:
  pattern:
    minLogCount: 25
  windows:
    padding: 5m
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("expected server address override, got %s", cfg.Server.Address)
	}
	if cfg.Analysis.Pattern.MinLogCount != 25 {
		t.Fatalf("expected minLogCount 25, got %d", cfg.Analysis.Pattern.MinLogCount)
	}
	if cfg.Analysis.Windows.Padding != 5*time.Minute {
		t.Fatalf("expected 5m padding, got %v", cfg.Analysis.Windows.Padding)
	}
	// Untouched sections keep defaults.
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("expected default metrics address, got %s", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MIRADOR_EXPLAIN_SERVER_ADDRESS", ":7070")
	t.Setenv("MIRADOR_EXPLAIN_MIN_LOG_COUNT", "42")
	t.Setenv("MIRADOR_EXPLAIN_CACHE_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("expected env address override, got %s", cfg.Server.Address)
	}
	if cfg.Analysis.Pattern.MinLogCount != 42 {
		t.Fatalf("expected env min log count 42, got %d", cfg.Analysis.Pattern.MinLogCount)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled via env")
	}
}
