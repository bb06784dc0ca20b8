package engine

import (
	"context"
	"fmt"
	"os/exec"
)

// Config defines the configuration for an engine adapter.
type Config struct {
	Command  string   // CLI binary name; defaults to the engine name
	Args     []string // Extra args appended to every invocation
	Model    string   // Model override (e.g., "opus-4", "gpt-4.1")
	Provider string   // For Goose local LLMs (e.g., "ollama", "lmstudio", "llama.cpp")
}

// Invocation carries everything an adapter needs to build one agent run.
type Invocation struct {
	SessionID    string // Scheduler session identifier, reused as the CLI session where supported
	Prompt       string // The instruction for the agent
	Role         string // Logical agent role (e.g., "coder", "reviewer")
	SystemPrompt string // Role-specific system prompt, may be empty
	WorkDir      string // Working directory for the subprocess
}

// Output is an adapter's interpretation of a finished process's streams.
type Output struct {
	Content   string
	SessionID string
}

// Engine translates a logical agent invocation into an invocable external
// command and interprets its output. Adapters are stateless and shared
// across tasks addressing the same engine; the scheduler owns the processes
// they describe.
type Engine interface {
	// Name returns the logical engine name ("claude", "codex", "goose").
	Name() string

	// Command builds the external command for one invocation.
	// The returned command has not been started.
	Command(ctx context.Context, inv Invocation) (*exec.Cmd, error)

	// ParseOutput interprets the captured stdout/stderr of a finished
	// process.
	ParseOutput(stdout, stderr []byte) (Output, error)
}

// FromConfig creates the adapter for the given engine name.
// Unknown names are an error, never a silent fallback.
func FromConfig(name string, cfg Config) (Engine, error) {
	switch name {
	case "claude":
		return NewClaude(cfg), nil
	case "codex":
		return NewCodex(cfg), nil
	case "goose":
		return NewGoose(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}
