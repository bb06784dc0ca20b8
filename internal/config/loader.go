package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config,
// defaults. Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.conductor/config.json
// Project: .conductor/config.json (relative to cwd)
func LoadDefault() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".conductor", "config.json")
	projectPath := filepath.Join(".conductor", "config.json")

	return Load(globalPath, projectPath)
}

// StateDir returns the per-user state directory, used for the default
// journal and workspace locations.
func StateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".conductor"), nil
}

// mergeConfigFile reads a JSON config file and merges it into the base
// config. Missing files are silently skipped. Malformed JSON returns an
// error.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for key, engine := range loaded.Engines {
		base.Engines[key] = engine
	}
	for key, agent := range loaded.Agents {
		base.Agents[key] = agent
	}
	mergeScheduler(&base.Scheduler, loaded.Scheduler)
	mergeJournal(&base.Journal, loaded.Journal)
	mergeWorkspace(&base.Workspace, loaded.Workspace)

	return nil
}

// mergeScheduler overrides base fields the loaded file actually set.
func mergeScheduler(base *SchedulerConfig, loaded SchedulerConfig) {
	if loaded.MaxConcurrent > 0 {
		base.MaxConcurrent = loaded.MaxConcurrent
	}
	if loaded.PollIntervalMs > 0 {
		base.PollIntervalMs = loaded.PollIntervalMs
	}
	if loaded.GraceTimeoutSeconds > 0 {
		base.GraceTimeoutSeconds = loaded.GraceTimeoutSeconds
	}
	if loaded.QueueSize > 0 {
		base.QueueSize = loaded.QueueSize
	}
	if loaded.DefaultTimeoutSeconds > 0 {
		base.DefaultTimeoutSeconds = loaded.DefaultTimeoutSeconds
	}
}

func mergeJournal(base *JournalConfig, loaded JournalConfig) {
	base.Disabled = base.Disabled || loaded.Disabled
	if loaded.Path != "" {
		base.Path = loaded.Path
	}
}

func mergeWorkspace(base *WorkspaceConfig, loaded WorkspaceConfig) {
	base.Keep = base.Keep || loaded.Keep
	if loaded.Root != "" {
		base.Root = loaded.Root
	}
}
