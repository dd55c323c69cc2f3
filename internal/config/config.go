// Package config handles the rfe configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultAgentCommand is the agent CLI started in each session window.
const DefaultAgentCommand = "claude"

// Config represents the flat rfe configuration.
type Config struct {
	Version string `json:"version"`
	// WorkspaceBase is the directory under which per-workflow workspaces
	// are created (default: ~/.rfe/workspaces).
	WorkspaceBase string `json:"workspace_base,omitempty"`
	// AgentCommand is the CLI launched for each agent session.
	AgentCommand string `json:"agent_command,omitempty"`
	// PersonasFile overrides the built-in persona registry when set.
	PersonasFile string `json:"personas_file,omitempty"`
}

// Load reads ~/.rfe/config.json. A missing file is not an error: the
// defaults apply.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	path := filepath.Join(home, ".rfe", "config.json")

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyDefaults(cfg, home), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return applyDefaults(cfg, home), nil
}

// Save writes config.json under ~/.rfe.
func Save(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	rfeDir := filepath.Join(home, ".rfe")
	if err := os.MkdirAll(rfeDir, 0755); err != nil {
		return fmt.Errorf("failed to create .rfe dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(rfeDir, "config.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config, home string) *Config {
	if cfg.WorkspaceBase == "" {
		cfg.WorkspaceBase = filepath.Join(home, ".rfe", "workspaces")
	}
	if cfg.AgentCommand == "" {
		cfg.AgentCommand = DefaultAgentCommand
	}
	return cfg
}
