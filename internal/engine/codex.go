package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Codex implements the Engine interface for the Codex CLI.
// It uses the `codex` CLI tool to interact with OpenAI's GPT models.
type Codex struct {
	command string
	args    []string
	model   string
}

// codexEvent is the base event type for all Codex events.
type codexEvent struct {
	Type string `json:"type"`
}

// codexThreadStarted represents the ThreadStarted event.
type codexThreadStarted struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
}

// codexTurnCompleted represents the TurnCompleted event.
type codexTurnCompleted struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewCodex creates a Codex engine adapter.
func NewCodex(cfg Config) *Codex {
	command := cfg.Command
	if command == "" {
		command = "codex"
	}

	return &Codex{
		command: command,
		args:    cfg.Args,
		model:   cfg.Model,
	}
}

// Name returns "codex".
func (c *Codex) Name() string { return "codex" }

// Command builds the codex CLI command for one invocation.
func (c *Codex) Command(ctx context.Context, inv Invocation) (*exec.Cmd, error) {
	if inv.Prompt == "" {
		return nil, fmt.Errorf("codex: empty prompt")
	}

	cmd := NewCommand(ctx, c.command, c.buildArgs(inv)...)
	cmd.Dir = inv.WorkDir
	return cmd, nil
}

// buildArgs constructs the command arguments for the codex CLI.
// Each scheduled task is a fresh thread: ["exec", prompt, "--json"].
func (c *Codex) buildArgs(inv Invocation) []string {
	prompt := inv.Prompt
	if inv.SystemPrompt != "" {
		// Codex has no system prompt flag; prepend it to the instruction.
		prompt = inv.SystemPrompt + "\n\n" + prompt
	}

	args := []string{"exec", prompt, "--json"}

	if c.model != "" {
		args = append(args, "--model", c.model)
	}

	args = append(args, c.args...)

	return args
}

// ParseOutput parses the newline-delimited JSON event stream from the Codex
// CLI, extracting the thread_id from ThreadStarted events and the content
// from TurnCompleted events.
func (c *Codex) ParseOutput(stdout, stderr []byte) (Output, error) {
	scanner := bufio.NewScanner(bytes.NewReader(stdout))

	var threadID, content string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// First parse to get event type
		var evt codexEvent
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			return Output{}, fmt.Errorf("failed to parse codex event type: %w", err)
		}

		switch evt.Type {
		case "ThreadStarted":
			var started codexThreadStarted
			if err := json.Unmarshal([]byte(line), &started); err != nil {
				return Output{}, fmt.Errorf("failed to parse ThreadStarted event: %w", err)
			}
			threadID = started.ThreadID

		case "TurnCompleted":
			var completed codexTurnCompleted
			if err := json.Unmarshal([]byte(line), &completed); err != nil {
				return Output{}, fmt.Errorf("failed to parse TurnCompleted event: %w", err)
			}
			content = completed.Content
		}
	}

	if err := scanner.Err(); err != nil {
		return Output{}, fmt.Errorf("error reading codex events: %w", err)
	}

	return Output{
		Content:   content,
		SessionID: threadID,
	}, nil
}
