package action

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aristath/conductor/internal/events"
)

// Action is a condition-gated unit of work reacting to events.
// CanExecute is a predicate deciding applicability; Execute performs the
// effectful work. Neither is called directly by the bus: invocations go
// through a Runner, which enforces the gate and the never-raise contract.
type Action interface {
	// Name returns the action's unique identity.
	Name() string

	// CanExecute reports whether the action applies to the event.
	CanExecute(ctx context.Context, event events.Event) (bool, error)

	// Execute performs the action's work for the event.
	Execute(ctx context.Context, event events.Event) (Result, error)
}

// Stats exposes an action's invocation counters for observability.
type Stats struct {
	Name           string
	ExecutionCount int64
	LastExecution  time.Time
}

// Runner is the uniform entry point wrapping a single Action.
// It evaluates the gate, maintains the action's execution counters, stamps
// timestamps the action omitted, and converts any error or panic from the
// action into a failed Result. A Runner never lets an action's failure
// escape to the bus or the publisher.
type Runner struct {
	action Action

	mu             sync.Mutex
	executionCount int64
	lastExecution  time.Time
}

// NewRunner wraps an action in its uniform entry point.
func NewRunner(a Action) *Runner {
	return &Runner{action: a}
}

// Handle invokes the action for the event and returns its result.
// A false gate yields a skipped result without touching the execution
// counter. Errors and panics from CanExecute or Execute become failed
// results, logged with the action name and event type.
func (r *Runner) Handle(ctx context.Context, event events.Event) (result Result) {
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("ERROR: action %q panicked handling %s event: %v", r.action.Name(), event.Type, rec)
			result = FailureResult(fmt.Sprintf("action panicked: %v", rec))
		}
		if result.StartedAt.IsZero() {
			result.StartedAt = started
		}
		if result.CompletedAt.IsZero() {
			result.CompletedAt = time.Now()
		}
	}()

	ok, err := r.action.CanExecute(ctx, event)
	if err != nil {
		log.Printf("WARNING: action %q gate failed for %s event: %v", r.action.Name(), event.Type, err)
		return FailureResult(fmt.Sprintf("can_execute failed: %v", err))
	}
	if !ok {
		return SkippedResult(fmt.Sprintf("action %q does not apply to %s event", r.action.Name(), event.Type))
	}

	r.mu.Lock()
	r.executionCount++
	r.lastExecution = started
	r.mu.Unlock()

	res, err := r.action.Execute(ctx, event)
	if err != nil {
		log.Printf("WARNING: action %q failed executing %s event: %v", r.action.Name(), event.Type, err)
		return FailureResult(err.Error())
	}

	return res
}

// HandleEvent adapts the runner to the events.Handler interface.
// The result is discarded here; callers that need it use Handle directly.
func (r *Runner) HandleEvent(ctx context.Context, event events.Event) error {
	r.Handle(ctx, event)
	return nil
}

// Stats returns the action's name and invocation counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Name:           r.action.Name(),
		ExecutionCount: r.executionCount,
		LastExecution:  r.lastExecution,
	}
}
