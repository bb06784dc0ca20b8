package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown engine")
	}
	if !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("expected ErrUnknownEngine, got %v", err)
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	claude := NewClaude(Config{})
	r.Register(claude)

	resolved, err := r.Resolve("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The same adapter instance is shared across tasks.
	if resolved != Engine(claude) {
		t.Error("Resolve returned a different adapter instance")
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(NewGoose(Config{}))
	r.Register(NewClaude(Config{}))
	r.Register(NewCodex(Config{}))

	want := []string{"claude", "codex", "goose"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFromConfig(t *testing.T) {
	for _, name := range []string{"claude", "codex", "goose"} {
		e, err := FromConfig(name, Config{})
		if err != nil {
			t.Fatalf("FromConfig(%q): %v", name, err)
		}
		if e.Name() != name {
			t.Errorf("expected engine %q, got %q", name, e.Name())
		}
	}

	if _, err := FromConfig("mystery", Config{}); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("expected ErrUnknownEngine for unknown type, got %v", err)
	}
}
