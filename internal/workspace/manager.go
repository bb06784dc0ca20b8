// Package workspace provisions per-session scratch directories so
// concurrent agent processes never share a working directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager creates and removes session workspaces under a single root.
type Manager struct {
	root string

	mu     sync.Mutex
	active map[string]string // session ID -> workspace path
}

// NewManager creates a manager rooted at root. The root itself is created
// lazily on first use.
func NewManager(root string) *Manager {
	return &Manager{
		root:   root,
		active: make(map[string]string),
	}
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// Create makes a fresh directory for the session and returns its absolute
// path. Creating a workspace for a session that already has one is an
// error; sessions get exactly one directory for their lifetime.
func (m *Manager) Create(sessionID string) (string, error) {
	if err := validSessionID(sessionID); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.active[sessionID]; ok {
		return "", fmt.Errorf("workspace already exists for session %s at %s", sessionID, path)
	}

	path := filepath.Join(m.root, sessionID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	m.active[sessionID] = abs
	return abs, nil
}

// Cleanup removes the session's workspace and everything in it.
// Unknown sessions are a no-op.
func (m *Manager) Cleanup(sessionID string) error {
	m.mu.Lock()
	path, ok := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove workspace for session %s: %w", sessionID, err)
	}
	return nil
}

// Active returns the session IDs that currently hold a workspace.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// Prune removes everything under the root, including directories left
// behind by a previous crashed run.
func (m *Manager) Prune() error {
	m.mu.Lock()
	m.active = make(map[string]string)
	m.mu.Unlock()

	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read workspace root: %w", err)
	}
	var errs []string
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to prune workspaces: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validSessionID rejects IDs that would escape the root.
func validSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("empty session ID")
	}
	if strings.ContainsAny(sessionID, "/\\") || strings.Contains(sessionID, "..") {
		return fmt.Errorf("invalid session ID %q", sessionID)
	}
	return nil
}
