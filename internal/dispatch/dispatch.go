// Package dispatch turns task-dispatch events into scheduled agent
// sessions, with retry and circuit breaker protection between the event bus
// and the scheduler.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/action"
	"github.com/aristath/conductor/internal/events"
	"github.com/aristath/conductor/internal/scheduler"
)

// Options tunes how dispatch fills in task fields the event left blank.
type Options struct {
	// RoleEngines maps agent roles to their configured engine, consulted
	// when the event names a role but no engine.
	RoleEngines map[string]string

	// DefaultEngine is used when neither the event nor the role names an
	// engine.
	DefaultEngine string

	// DefaultTimeout is applied when the event names no timeout. Zero
	// leaves tasks unbounded.
	DefaultTimeout time.Duration

	// Retry overrides the retry policy. Zero value uses defaults.
	Retry RetryConfig
}

// ScheduleAction schedules one agent session per task-dispatch event.
type ScheduleAction struct {
	sched    scheduler.Scheduler
	breakers *BreakerRegistry
	opts     Options
}

// NewScheduleAction builds the action. The breaker registry may be shared
// with other dispatchers.
func NewScheduleAction(sched scheduler.Scheduler, breakers *BreakerRegistry, opts Options) *ScheduleAction {
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if breakers == nil {
		breakers = NewBreakerRegistry()
	}
	return &ScheduleAction{sched: sched, breakers: breakers, opts: opts}
}

func (a *ScheduleAction) Name() string { return "schedule-agent-task" }

// CanExecute admits only task-dispatch events that carry a prompt.
func (a *ScheduleAction) CanExecute(ctx context.Context, event events.Event) (bool, error) {
	if event.Type != events.TypeTaskDispatch {
		return false, nil
	}
	return event.PayloadString("prompt") != "", nil
}

// Execute builds an AgentTask from the event payload and submits it.
func (a *ScheduleAction) Execute(ctx context.Context, event events.Event) (action.Result, error) {
	task := a.taskFromEvent(event)
	if err := task.Validate(); err != nil {
		return action.FailureResult(err.Error()), fmt.Errorf("dispatch rejected: %w", err)
	}

	cb := a.breakers.Get(task.Engine)
	sessionID, err := scheduleWithRetry(ctx, a.sched, task, cb, a.opts.Retry)
	if err != nil {
		return action.FailureResult(err.Error()), fmt.Errorf("failed to schedule task for role %q: %w", task.RoleName, err)
	}

	result := action.SuccessResult(sessionID).
		WithMetadata("session_id", sessionID).
		WithMetadata("role", task.RoleName).
		WithMetadata("engine", task.Engine)
	return result, nil
}

func (a *ScheduleAction) taskFromEvent(event events.Event) scheduler.AgentTask {
	task := scheduler.AgentTask{
		TaskID:   event.PayloadString("task_id"),
		RoleName: event.PayloadString("role"),
		IssueID:  event.PayloadString("issue_id"),
		Prompt:   event.PayloadString("prompt"),
		Engine:   event.PayloadString("engine"),
		Timeout:  event.PayloadDuration("timeout"),
		WorkDir:  event.PayloadString("workdir"),
	}
	if task.Engine == "" {
		task.Engine = a.opts.RoleEngines[task.RoleName]
	}
	if task.Engine == "" {
		task.Engine = a.opts.DefaultEngine
	}
	if task.Timeout == 0 {
		task.Timeout = a.opts.DefaultTimeout
	}
	return task
}
