package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorkspaceBase != filepath.Join(home, ".rfe", "workspaces") {
		t.Errorf("WorkspaceBase = %s", cfg.WorkspaceBase)
	}
	if cfg.AgentCommand != DefaultAgentCommand {
		t.Errorf("AgentCommand = %s", cfg.AgentCommand)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := Save(&Config{Version: "1", WorkspaceBase: "/var/rfe", AgentCommand: "goose"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorkspaceBase != "/var/rfe" || cfg.AgentCommand != "goose" {
		t.Errorf("round trip lost fields: %+v", cfg)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".rfe")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("malformed config should fail to load")
	}
}
