package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aristath/conductor/internal/engine"
	"github.com/aristath/conductor/internal/events"
	"github.com/aristath/conductor/internal/scheduler"
)

// fakeScheduler records scheduled tasks and fails the first failures
// submissions.
type fakeScheduler struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error // returned on every call when set
	tasks    []scheduler.AgentTask
}

func (f *fakeScheduler) Schedule(ctx context.Context, task scheduler.AgentTask) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.calls <= f.failures {
		return "", fmt.Errorf("transient failure %d", f.calls)
	}
	f.tasks = append(f.tasks, task)
	return fmt.Sprintf("session-%d", len(f.tasks)), nil
}

func (f *fakeScheduler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeScheduler) Start() error { return nil }
func (f *fakeScheduler) Stop() error  { return nil }
func (f *fakeScheduler) Status(string) (scheduler.Status, bool) {
	return scheduler.StatusPending, false
}
func (f *fakeScheduler) Session(string) (scheduler.SessionInfo, bool) {
	return scheduler.SessionInfo{}, false
}
func (f *fakeScheduler) Active() map[string]scheduler.Status { return nil }
func (f *fakeScheduler) ActiveIDs() []string                 { return nil }
func (f *fakeScheduler) Terminate(string) bool               { return false }
func (f *fakeScheduler) Stats() scheduler.Stats              { return scheduler.Stats{} }

func fastRetry() RetryConfig {
	return RetryConfig{
		InitialInterval:     time.Millisecond,
		MaxInterval:         5 * time.Millisecond,
		MaxElapsedTime:      time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0,
	}
}

func dispatchEvent(payload map[string]any) events.Event {
	return events.New(events.TypeTaskDispatch, "test", payload)
}

func TestCanExecuteGatesOnTypeAndPrompt(t *testing.T) {
	a := NewScheduleAction(&fakeScheduler{}, nil, Options{})

	tests := []struct {
		name  string
		event events.Event
		want  bool
	}{
		{"dispatch with prompt", dispatchEvent(map[string]any{"prompt": "do it"}), true},
		{"dispatch without prompt", dispatchEvent(nil), false},
		{"other event type", events.New(events.TypeIssueCreated, "test", map[string]any{"prompt": "do it"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.CanExecute(context.Background(), tt.event)
			if err != nil {
				t.Fatalf("CanExecute failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanExecute = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteMapsPayloadToTask(t *testing.T) {
	sched := &fakeScheduler{}
	a := NewScheduleAction(sched, nil, Options{Retry: fastRetry()})

	event := dispatchEvent(map[string]any{
		"prompt":   "fix the flaky test",
		"role":     "coder",
		"engine":   "claude",
		"issue_id": "issue-42",
		"timeout":  "90s",
	})
	result, err := a.Execute(context.Background(), event)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %s", result.Error)
	}
	if result.Metadata["session_id"] != "session-1" {
		t.Errorf("session_id metadata = %v", result.Metadata["session_id"])
	}

	task := sched.tasks[0]
	if task.RoleName != "coder" || task.Engine != "claude" || task.IssueID != "issue-42" {
		t.Errorf("task fields not mapped: %+v", task)
	}
	if task.Timeout != 90*time.Second {
		t.Errorf("timeout = %s, want 90s", task.Timeout)
	}
}

func TestExecuteAppliesRoleEngine(t *testing.T) {
	sched := &fakeScheduler{}
	a := NewScheduleAction(sched, nil, Options{
		RoleEngines:   map[string]string{"reviewer": "codex"},
		DefaultEngine: "claude",
		Retry:         fastRetry(),
	})

	event := dispatchEvent(map[string]any{"prompt": "review this", "role": "reviewer"})
	if _, err := a.Execute(context.Background(), event); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := sched.tasks[0].Engine; got != "codex" {
		t.Errorf("engine = %q, want role-mapped codex", got)
	}
}

func TestExecuteAppliesDefaults(t *testing.T) {
	sched := &fakeScheduler{}
	a := NewScheduleAction(sched, nil, Options{
		DefaultEngine:  "goose",
		DefaultTimeout: 5 * time.Minute,
		Retry:          fastRetry(),
	})

	if _, err := a.Execute(context.Background(), dispatchEvent(map[string]any{"prompt": "hi"})); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	task := sched.tasks[0]
	if task.Engine != "goose" {
		t.Errorf("engine = %q, want default goose", task.Engine)
	}
	if task.Timeout != 5*time.Minute {
		t.Errorf("timeout = %s, want default 5m", task.Timeout)
	}
}

func TestExecuteRejectsUnschedulableTask(t *testing.T) {
	sched := &fakeScheduler{}
	a := NewScheduleAction(sched, nil, Options{Retry: fastRetry()})

	// Prompt present but no engine and no default: invalid before any
	// scheduling attempt.
	_, err := a.Execute(context.Background(), dispatchEvent(map[string]any{"prompt": "hi"}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if sched.callCount() != 0 {
		t.Errorf("scheduler called %d times for an invalid task", sched.callCount())
	}
}

func TestTransientFailuresAreRetried(t *testing.T) {
	sched := &fakeScheduler{failures: 2}
	a := NewScheduleAction(sched, nil, Options{DefaultEngine: "claude", Retry: fastRetry()})

	result, err := a.Execute(context.Background(), dispatchEvent(map[string]any{"prompt": "retry me"}))
	if err != nil {
		t.Fatalf("Execute failed after retries: %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %s", result.Error)
	}
	if got := sched.callCount(); got != 3 {
		t.Errorf("scheduler called %d times, want 3", got)
	}
}

func TestConfigurationErrorsAreNotRetried(t *testing.T) {
	for _, sentinel := range []error{engine.ErrUnknownEngine, scheduler.ErrNotStarted} {
		sched := &fakeScheduler{err: fmt.Errorf("wrapped: %w", sentinel)}
		a := NewScheduleAction(sched, nil, Options{DefaultEngine: "claude", Retry: fastRetry()})

		_, err := a.Execute(context.Background(), dispatchEvent(map[string]any{"prompt": "hi"}))
		if !errors.Is(err, sentinel) {
			t.Errorf("error = %v, want %v", err, sentinel)
		}
		if got := sched.callCount(); got != 1 {
			t.Errorf("scheduler called %d times for %v, want 1", got, sentinel)
		}
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	sched := &fakeScheduler{err: errors.New("engine exploded")}
	breakers := NewBreakerRegistry()
	a := NewScheduleAction(sched, breakers, Options{DefaultEngine: "claude", Retry: fastRetry()})

	// Each Execute retries until the retry budget runs out; after enough
	// consecutive failures the breaker opens and later dispatches fail
	// fast without touching the scheduler.
	for i := 0; i < 3; i++ {
		_, _ = a.Execute(context.Background(), dispatchEvent(map[string]any{"prompt": "hi"}))
	}

	before := sched.callCount()
	if before < 5 {
		t.Fatalf("expected at least 5 attempts before breaker opens, got %d", before)
	}
	_, err := a.Execute(context.Background(), dispatchEvent(map[string]any{"prompt": "hi"}))
	if err == nil {
		t.Fatal("expected error with open breaker")
	}
	if got := sched.callCount(); got != before {
		t.Errorf("scheduler touched while breaker open: %d -> %d calls", before, got)
	}
}

func TestBreakersArePerEngine(t *testing.T) {
	reg := NewBreakerRegistry()
	if reg.Get("claude") == reg.Get("codex") {
		t.Error("distinct engines share a breaker")
	}
	if reg.Get("claude") != reg.Get("claude") {
		t.Error("breaker not reused for the same engine")
	}
}
