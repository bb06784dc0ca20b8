package scheduler

import (
	"fmt"
	"time"
)

// AgentTask specifies one unit of agent work. Immutable once submitted.
type AgentTask struct {
	TaskID   string        // Caller-supplied correlation ID; generated if empty
	RoleName string        // Logical agent role (e.g., "coder", "reviewer")
	IssueID  string        // Correlation key for the triggering issue/message
	Prompt   string        // Text payload for the engine
	Engine   string        // Logical engine name resolved through the registry
	Timeout  time.Duration // Wall-clock deadline; 0 disables the deadline
	WorkDir  string        // Pinned working directory; empty uses a session workspace
}

// Validate checks the task is well-formed enough to schedule.
func (t AgentTask) Validate() error {
	if t.Prompt == "" {
		return fmt.Errorf("task has empty prompt")
	}
	if t.Engine == "" {
		return fmt.Errorf("task has empty engine name")
	}
	return nil
}

// Status represents the state of a scheduled session.
type Status int

const (
	StatusPending   Status = iota // Queued, process not started yet
	StatusRunning                 // Process launched and alive
	StatusCompleted               // Process exited 0
	StatusFailed                  // Process exited non-zero, failed to launch, or timed out
	StatusCancelled               // Terminated on request
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status is final. Transitions never leave a
// terminal status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
