package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.Agent.MaxTurns != def.Agent.MaxTurns {
		t.Errorf("expected default maxTurns %d, got %d", def.Agent.MaxTurns, cfg.Agent.MaxTurns)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
agent:
  maxTurns: 5
  historyLimit: 20
model:
  model: gpt-4o-mini
  apiKey: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agent.MaxTurns != 5 {
		t.Errorf("expected maxTurns 5, got %d", cfg.Agent.MaxTurns)
	}
	if cfg.Agent.HistoryLimit != 20 {
		t.Errorf("expected historyLimit 20, got %d", cfg.Agent.HistoryLimit)
	}
	if cfg.Model.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", cfg.Model.Model)
	}
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
model:
  apiKey: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := DefaultConfig()
	if cfg.Agent.HistoryLimit != def.Agent.HistoryLimit {
		t.Errorf("expected default historyLimit %d, got %d", def.Agent.HistoryLimit, cfg.Agent.HistoryLimit)
	}
	if cfg.Agent.HistoryTTLDays != def.Agent.HistoryTTLDays {
		t.Errorf("expected default historyTtlDays %d, got %d", def.Agent.HistoryTTLDays, cfg.Agent.HistoryTTLDays)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "model: [not: valid")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
agent:
  maxTurns: 0
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for maxTurns 0")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	original := DefaultConfig()
	original.Agent.MaxTurns = 4
	original.Model.Model = "gpt-4.1"

	if err := Save(&original, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Agent.MaxTurns != 4 {
		t.Errorf("maxTurns mismatch: got %d, want 4", loaded.Agent.MaxTurns)
	}
	if loaded.Model.Model != "gpt-4.1" {
		t.Errorf("model mismatch: got %q", loaded.Model.Model)
	}
}

func TestWorkspacePath_ExpandsTilde(t *testing.T) {
	cfg := DefaultConfig()
	ws := cfg.WorkspacePath()
	if len(ws) == 0 || ws[0] == '~' {
		t.Errorf("expected expanded path, got %q", ws)
	}
}
