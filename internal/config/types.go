package config

// EngineConfig defines one external agent CLI. Engines are separate from
// agents -- multiple agent roles can share one engine.
type EngineConfig struct {
	Command  string   `json:"command"`            // CLI binary name (e.g., "claude", "codex", "goose")
	Args     []string `json:"args,omitempty"`     // Extra args appended to every invocation
	Type     string   `json:"type"`               // Adapter type: "claude", "codex", "goose"
	Model    string   `json:"model,omitempty"`    // Default model for this engine
	Provider string   `json:"provider,omitempty"` // Provider hint, used by goose
}

// AgentConfig defines a role that uses a specific engine.
type AgentConfig struct {
	Engine       string `json:"engine"`                  // Key into Engines map
	Model        string `json:"model,omitempty"`         // Model override
	SystemPrompt string `json:"system_prompt,omitempty"` // Role-specific system prompt
}

// SchedulerConfig tunes the local process scheduler.
type SchedulerConfig struct {
	MaxConcurrent         int `json:"max_concurrent"`                    // Simultaneous agent processes
	PollIntervalMs        int `json:"poll_interval_ms,omitempty"`        // Deadline check interval
	GraceTimeoutSeconds   int `json:"grace_timeout_seconds,omitempty"`   // SIGTERM to SIGKILL grace
	QueueSize             int `json:"queue_size,omitempty"`              // Admission queue bound
	DefaultTimeoutSeconds int `json:"default_timeout_seconds,omitempty"` // Applied to tasks without one; 0 disables
}

// JournalConfig controls run persistence. Journaling is on by default;
// any config file can switch it off.
type JournalConfig struct {
	Disabled bool   `json:"disabled,omitempty"`
	Path     string `json:"path,omitempty"` // SQLite file; defaults under the state dir
}

// WorkspaceConfig controls per-session scratch directories. Leftovers from
// crashed runs are pruned on start unless Keep is set.
type WorkspaceConfig struct {
	Root string `json:"root,omitempty"` // Defaults under the state dir
	Keep bool   `json:"keep,omitempty"` // Keep leftover workspaces on start
}

// Config is the top-level configuration.
type Config struct {
	Engines   map[string]EngineConfig `json:"engines"`
	Agents    map[string]AgentConfig  `json:"agents"`
	Scheduler SchedulerConfig         `json:"scheduler"`
	Journal   JournalConfig           `json:"journal"`
	Workspace WorkspaceConfig         `json:"workspace"`
}
