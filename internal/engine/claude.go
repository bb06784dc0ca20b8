package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Claude implements the Engine interface for the Claude Code CLI.
// One invocation maps to one one-shot subprocess; the scheduler's session ID
// doubles as the CLI session ID so a run can later be resumed by hand.
type Claude struct {
	command string
	args    []string
	model   string
}

// claudeResponse represents the JSON structure returned by Claude Code CLI.
// Example: {"session_id": "uuid", "result": {"content": [{"type": "text", "text": "response"}]}}
type claudeResponse struct {
	SessionID string `json:"session_id"`
	Result    struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

// NewClaude creates a Claude Code engine adapter.
func NewClaude(cfg Config) *Claude {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}

	return &Claude{
		command: command,
		args:    cfg.Args,
		model:   cfg.Model,
	}
}

// Name returns "claude".
func (c *Claude) Name() string { return "claude" }

// Command builds the claude CLI command for one invocation.
func (c *Claude) Command(ctx context.Context, inv Invocation) (*exec.Cmd, error) {
	if inv.Prompt == "" {
		return nil, fmt.Errorf("claude: empty prompt")
	}

	cmd := NewCommand(ctx, c.command, c.buildArgs(inv)...)
	cmd.Dir = inv.WorkDir
	return cmd, nil
}

// buildArgs constructs the command-line arguments for the claude CLI.
func (c *Claude) buildArgs(inv Invocation) []string {
	args := []string{"-p", inv.Prompt, "--output-format", "json"}

	if inv.SessionID != "" {
		args = append(args, "--session-id", inv.SessionID)
	}

	if c.model != "" {
		args = append(args, "--model", c.model)
	}

	if inv.SystemPrompt != "" {
		args = append(args, "--system-prompt", inv.SystemPrompt)
	}

	args = append(args, c.args...)

	return args
}

// ParseOutput parses the JSON output from Claude Code CLI.
func (c *Claude) ParseOutput(stdout, stderr []byte) (Output, error) {
	var cr claudeResponse
	if err := json.Unmarshal(stdout, &cr); err != nil {
		return Output{}, fmt.Errorf("failed to parse claude response: %w (stderr: %s)", err, string(stderr))
	}

	// Extract text content from the content array
	var content string
	for _, item := range cr.Result.Content {
		if item.Type == "text" {
			content += item.Text
		}
	}

	return Output{
		Content:   content,
		SessionID: cr.SessionID,
	}, nil
}
