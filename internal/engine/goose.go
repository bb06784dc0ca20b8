package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Goose implements the Engine interface for the Goose CLI.
// Goose supports local LLM providers (Ollama, LM Studio, llama.cpp) via
// --provider and --model flags.
type Goose struct {
	command  string
	args     []string
	model    string
	provider string
}

// gooseResponse represents the JSON response structure from Goose CLI.
// Goose's JSON output format is less documented, so this struct is flexible.
type gooseResponse struct {
	Content string `json:"content"`
}

// NewGoose creates a Goose engine adapter.
func NewGoose(cfg Config) *Goose {
	command := cfg.Command
	if command == "" {
		command = "goose"
	}

	return &Goose{
		command:  command,
		args:     cfg.Args,
		model:    cfg.Model,
		provider: cfg.Provider,
	}
}

// Name returns "goose".
func (g *Goose) Name() string { return "goose" }

// Command builds the goose CLI command for one invocation.
func (g *Goose) Command(ctx context.Context, inv Invocation) (*exec.Cmd, error) {
	if inv.Prompt == "" {
		return nil, fmt.Errorf("goose: empty prompt")
	}

	cmd := NewCommand(ctx, g.command, g.buildArgs(inv)...)
	cmd.Dir = inv.WorkDir
	return cmd, nil
}

// buildArgs constructs the command-line arguments for the Goose CLI.
func (g *Goose) buildArgs(inv Invocation) []string {
	args := []string{"run", "--text", inv.Prompt, "--output-format", "json"}

	if inv.SessionID != "" {
		args = append(args, "--name", "conductor-"+shortID(inv.SessionID))
	}

	// Local LLM support: --provider and --model flags
	if g.provider != "" {
		args = append(args, "--provider", g.provider)
	}
	if g.model != "" {
		args = append(args, "--model", g.model)
	}

	if inv.SystemPrompt != "" {
		args = append(args, "--system", inv.SystemPrompt)
	}

	args = append(args, g.args...)

	return args
}

// ParseOutput parses the JSON response from the Goose CLI.
// Tries a single JSON object first, then newline-delimited JSON, and finally
// falls back to treating stdout as plain text. The fallback handles goose
// builds where --output-format json is not supported.
func (g *Goose) ParseOutput(stdout, stderr []byte) (Output, error) {
	// Try parsing as single JSON object
	var resp gooseResponse
	if err := json.Unmarshal(stdout, &resp); err == nil && resp.Content != "" {
		return Output{Content: resp.Content}, nil
	}

	// Try newline-delimited JSON (same approach as Codex)
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	var contents []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var lineResp gooseResponse
		if err := json.Unmarshal([]byte(line), &lineResp); err == nil && lineResp.Content != "" {
			contents = append(contents, lineResp.Content)
		}
	}

	if len(contents) > 0 {
		return Output{Content: strings.Join(contents, "\n")}, nil
	}

	// Plain text fallback
	content := string(stdout)
	if len(stderr) > 0 {
		content = content + "\n[stderr]: " + string(stderr)
	}

	return Output{Content: content}, nil
}

// shortID returns the first 8 characters of an ID for human-readable
// session names.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
