package config

// DefaultConfig returns the default configuration with built-in engines and
// agent roles.
func DefaultConfig() *Config {
	return &Config{
		Engines: map[string]EngineConfig{
			"claude": {
				Command: "claude",
				Type:    "claude",
			},
			"codex": {
				Command: "codex",
				Type:    "codex",
			},
			"goose": {
				Command: "goose",
				Type:    "goose",
			},
		},
		Agents: map[string]AgentConfig{
			"coder": {
				Engine:       "claude",
				SystemPrompt: "You implement features and write production code.",
			},
			"reviewer": {
				Engine:       "claude",
				SystemPrompt: "You review code for correctness, style, and best practices.",
			},
			"tester": {
				Engine:       "claude",
				SystemPrompt: "You write comprehensive tests and validate functionality.",
			},
		},
		Scheduler: SchedulerConfig{
			MaxConcurrent:         3,
			PollIntervalMs:        250,
			GraceTimeoutSeconds:   5,
			QueueSize:             256,
			DefaultTimeoutSeconds: 600,
		},
		Journal:   JournalConfig{},
		Workspace: WorkspaceConfig{},
	}
}
