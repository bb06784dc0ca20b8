package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateAndCleanup(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "workspaces"))

	path, err := m.Create("sess-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("workspace not on disk: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("workspace is not a directory")
	}

	// A session gets exactly one workspace.
	if _, err := m.Create("sess-1"); err == nil {
		t.Error("second Create for the same session succeeded")
	}

	if err := m.Cleanup("sess-1"); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("workspace still on disk after Cleanup")
	}
}

func TestCleanupUnknownSessionIsNoop(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Cleanup("never-created"); err != nil {
		t.Errorf("Cleanup of unknown session failed: %v", err)
	}
}

func TestCreateRejectsPathEscapes(t *testing.T) {
	m := NewManager(t.TempDir())
	for _, id := range []string{"", "../evil", "a/b", `a\b`} {
		if _, err := m.Create(id); err == nil {
			t.Errorf("Create(%q) succeeded, want error", id)
		}
	}
}

func TestActiveTracksLiveWorkspaces(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Create("sess-a"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := m.Create("sess-b"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := len(m.Active()); got != 2 {
		t.Errorf("Active() has %d entries, want 2", got)
	}
	if err := m.Cleanup("sess-a"); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if got := len(m.Active()); got != 1 {
		t.Errorf("Active() has %d entries after cleanup, want 1", got)
	}
}

func TestPruneClearsLeftovers(t *testing.T) {
	root := t.TempDir()
	// Simulate a directory left behind by a crashed run.
	if err := os.MkdirAll(filepath.Join(root, "stale-session"), 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	m := NewManager(root)
	if _, err := m.Create("sess-live"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.Prune(); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries remain after Prune", len(entries))
	}
	if len(m.Active()) != 0 {
		t.Error("Active() not cleared by Prune")
	}
}

func TestPruneMissingRootIsNoop(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := m.Prune(); err != nil {
		t.Errorf("Prune of missing root failed: %v", err)
	}
}
