package scheduler

import (
	"bytes"
	"os/exec"
	"time"

	"github.com/aristath/conductor/internal/engine"
)

// session binds one AgentTask to at most one live OS process.
// The scheduler owns all sessions exclusively; nothing outside this package
// may mutate one. All fields are guarded by the scheduler's mutex.
type session struct {
	id     string
	task   AgentTask
	status Status

	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	deadline    time.Time // zero when the task has no timeout

	eng       engine.Engine
	cmd       *exec.Cmd
	stdout    bytes.Buffer
	stderr    bytes.Buffer
	workspace string // session-scoped scratch dir, empty when the task pinned one
	killTimer *time.Timer

	output   string
	err      error
	exitCode int
}

// SessionInfo is a read-only snapshot of a session, safe to hand to
// observers.
type SessionInfo struct {
	ID          string
	Task        AgentTask
	Status      Status
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Output      string
	Error       string
	ExitCode    int
}

// snapshot copies the observable parts of a session.
// Caller must hold the scheduler's mutex.
func (s *session) snapshot() SessionInfo {
	info := SessionInfo{
		ID:          s.id,
		Task:        s.task,
		Status:      s.status,
		CreatedAt:   s.createdAt,
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
		Output:      s.output,
		ExitCode:    s.exitCode,
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	return info
}
