package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Scheduler.MaxConcurrent = 7
	cfg.Agents["architect"] = AgentConfig{
		Engine:       "codex",
		SystemPrompt: "You design systems.",
	}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Parent directories must have been created.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load of saved config failed: %v", err)
	}
	if loaded.Scheduler.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d, want 7", loaded.Scheduler.MaxConcurrent)
	}
	if loaded.Agents["architect"].Engine != "codex" {
		t.Errorf("architect agent = %+v", loaded.Agents["architect"])
	}
}

func TestSaveProducesIndentedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var check map[string]any
	if err := json.Unmarshal(data, &check); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if data[0] != '{' || data[1] != '\n' {
		t.Error("saved JSON is not indented")
	}
}
