package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEngine is returned when a logical engine name has no registered
// adapter. Callers treat it as a configuration error.
var ErrUnknownEngine = errors.New("unknown engine")

// Registry resolves logical engine names to adapter instances.
// It is populated at composition time and passed by reference; there is no
// package-level registry.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an adapter under its own name, replacing any previous
// adapter with that name.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// RegisterAs adds an adapter under an explicit name, so configuration can
// expose the same adapter type under several logical names.
func (r *Registry) RegisterAs(name string, e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = e
}

// Resolve returns the adapter for the given engine name.
// The same instance is shared across all tasks addressing that engine.
func (r *Registry) Resolve(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return e, nil
}

// Names returns all registered engine names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
