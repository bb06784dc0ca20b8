package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a JSON config file for testing.
func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := cfg.Engines["claude"]; !ok {
		t.Error("default config missing claude engine")
	}
	if _, ok := cfg.Agents["coder"]; !ok {
		t.Error("default config missing coder agent")
	}
	if cfg.Scheduler.MaxConcurrent != 3 {
		t.Errorf("MaxConcurrent = %d, want 3", cfg.Scheduler.MaxConcurrent)
	}
	if cfg.Journal.Disabled {
		t.Error("journal disabled by default")
	}
}

func TestLoadMissingFilesAreNotErrors(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("Load with missing files failed: %v", err)
	}
	if len(cfg.Engines) == 0 {
		t.Error("defaults not applied when files are missing")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", "{not json")

	if _, err := Load(path, ""); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestGlobalConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.json", `{
		"engines": {
			"claude": {"command": "/opt/bin/claude", "type": "claude", "model": "opus"}
		},
		"scheduler": {"max_concurrent": 8}
	}`)

	cfg, err := Load(global, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engines["claude"].Command != "/opt/bin/claude" {
		t.Errorf("command = %q, want override", cfg.Engines["claude"].Command)
	}
	if cfg.Engines["claude"].Model != "opus" {
		t.Errorf("model = %q, want opus", cfg.Engines["claude"].Model)
	}
	// Engines the file did not mention survive.
	if _, ok := cfg.Engines["codex"]; !ok {
		t.Error("codex engine lost during merge")
	}
	if cfg.Scheduler.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", cfg.Scheduler.MaxConcurrent)
	}
	// Scheduler fields the file did not set keep their defaults.
	if cfg.Scheduler.PollIntervalMs != 250 {
		t.Errorf("PollIntervalMs = %d, want default 250", cfg.Scheduler.PollIntervalMs)
	}
}

func TestProjectConfigWinsOverGlobal(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.json", `{
		"agents": {
			"coder": {"engine": "claude", "model": "opus"}
		}
	}`)
	project := writeConfig(t, dir, "project.json", `{
		"agents": {
			"coder": {"engine": "codex", "model": "gpt-5"}
		}
	}`)

	cfg, err := Load(global, project)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	coder := cfg.Agents["coder"]
	if coder.Engine != "codex" || coder.Model != "gpt-5" {
		t.Errorf("coder agent = %+v, want project override", coder)
	}
}

func TestProjectConfigAddsNewEntries(t *testing.T) {
	dir := t.TempDir()
	project := writeConfig(t, dir, "project.json", `{
		"engines": {
			"aider": {"command": "aider", "type": "codex"}
		},
		"agents": {
			"doc-writer": {"engine": "aider", "system_prompt": "You write docs."}
		}
	}`)

	cfg, err := Load("", project)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engines["aider"].Command != "aider" {
		t.Error("new engine not merged")
	}
	if cfg.Agents["doc-writer"].SystemPrompt != "You write docs." {
		t.Error("new agent not merged")
	}
	// Defaults still present.
	if _, ok := cfg.Agents["reviewer"]; !ok {
		t.Error("default reviewer agent lost")
	}
}

func TestAnyFileCanDisableJournal(t *testing.T) {
	dir := t.TempDir()
	project := writeConfig(t, dir, "project.json", `{
		"journal": {"disabled": true}
	}`)

	cfg, err := Load("", project)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Journal.Disabled {
		t.Error("journal not disabled by project config")
	}
}

func TestWorkspaceMerge(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.json", `{
		"workspace": {"root": "/tmp/agents", "keep": true}
	}`)

	cfg, err := Load(global, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workspace.Root != "/tmp/agents" {
		t.Errorf("root = %q", cfg.Workspace.Root)
	}
	if !cfg.Workspace.Keep {
		t.Error("keep flag not merged")
	}
}
