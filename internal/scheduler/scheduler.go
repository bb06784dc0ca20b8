package scheduler

import (
	"context"
	"errors"
)

// ErrNotStarted is returned by Schedule when the scheduler is stopped.
var ErrNotStarted = errors.New("scheduler not started")

// Stats is a point-in-time view of the scheduler's bookkeeping.
type Stats struct {
	Running        bool // Whether the scheduler is started
	MaxConcurrent  int
	ActiveSessions int // Sessions in a non-terminal status
	TotalSessions  int // Sessions created since construction
	AvailableSlots int
}

// Scheduler accepts agent tasks and executes them with observable status.
// Schedule returns as soon as the session exists; it never waits for task
// completion.
type Scheduler interface {
	// Start begins accepting tasks. Idempotent; fails loudly on
	// misconfiguration before any scheduling occurs.
	Start() error

	// Stop terminates or waits for all active sessions and halts
	// background activity. Idempotent and safe on an already-stopped
	// scheduler.
	Stop() error

	// Schedule begins execution of a task and returns its session ID.
	// Unknown engine names and a stopped scheduler are synchronous errors.
	Schedule(ctx context.Context, task AgentTask) (string, error)

	// Status returns the session's status, or false for unknown IDs.
	Status(sessionID string) (Status, bool)

	// Session returns a read-only snapshot of the session, or false for
	// unknown IDs.
	Session(sessionID string) (SessionInfo, bool)

	// Active returns a snapshot of all non-terminal sessions.
	Active() map[string]Status

	// ActiveIDs returns the non-terminal session IDs in creation order.
	ActiveIDs() []string

	// Terminate requests cancellation of a session. Returns false for
	// unknown or already-terminal sessions.
	Terminate(sessionID string) bool

	// Stats returns the scheduler's concurrency bookkeeping.
	Stats() Stats
}
