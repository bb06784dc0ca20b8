package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/conductor/internal/events"
)

// stubAction implements Action for testing.
type stubAction struct {
	name       string
	applies    bool
	gateErr    error
	result     Result
	execErr    error
	panics     bool
	execCalled int
}

func (a *stubAction) Name() string { return a.name }

func (a *stubAction) CanExecute(ctx context.Context, ev events.Event) (bool, error) {
	return a.applies, a.gateErr
}

func (a *stubAction) Execute(ctx context.Context, ev events.Event) (Result, error) {
	a.execCalled++
	if a.panics {
		panic("action blew up")
	}
	return a.result, a.execErr
}

func TestRunnerSkipsWhenGateIsFalse(t *testing.T) {
	a := &stubAction{name: "test-action", applies: false}
	r := NewRunner(a)

	res := r.Handle(context.Background(), events.New(events.TypeIssueCreated, "test", nil))

	if !res.Success || res.Status != StatusSkipped {
		t.Errorf("expected successful skipped result, got success=%v status=%s", res.Success, res.Status)
	}
	if a.execCalled != 0 {
		t.Error("Execute was called despite a false gate")
	}
	if stats := r.Stats(); stats.ExecutionCount != 0 {
		t.Errorf("expected execution count 0 after skip, got %d", stats.ExecutionCount)
	}
}

func TestRunnerExecutesWhenGateIsTrue(t *testing.T) {
	a := &stubAction{name: "test-action", applies: true, result: SuccessResult("done")}
	r := NewRunner(a)

	res := r.Handle(context.Background(), events.New(events.TypeTaskDispatch, "test", nil))

	if !res.Success || res.Status != StatusSuccess {
		t.Errorf("expected success, got success=%v status=%s", res.Success, res.Status)
	}
	if res.Output != "done" {
		t.Errorf("expected output 'done', got %v", res.Output)
	}
	if res.StartedAt.IsZero() || res.CompletedAt.IsZero() {
		t.Error("runner did not stamp timestamps the action omitted")
	}

	stats := r.Stats()
	if stats.ExecutionCount != 1 {
		t.Errorf("expected execution count 1, got %d", stats.ExecutionCount)
	}
	if stats.Name != "test-action" {
		t.Errorf("expected stats name 'test-action', got %q", stats.Name)
	}
	if time.Since(stats.LastExecution) > time.Second {
		t.Errorf("last execution timestamp not updated: %v", stats.LastExecution)
	}
}

func TestRunnerConvertsExecuteErrorToFailure(t *testing.T) {
	a := &stubAction{name: "test-action", applies: true, execErr: errors.New("boom")}
	r := NewRunner(a)

	res := r.Handle(context.Background(), events.New(events.TypeTaskDispatch, "test", nil))

	if res.Success || res.Status != StatusFailed {
		t.Errorf("expected failed result, got success=%v status=%s", res.Success, res.Status)
	}
	if res.Error != "boom" {
		t.Errorf("expected error 'boom', got %q", res.Error)
	}
}

func TestRunnerConvertsGateErrorToFailure(t *testing.T) {
	a := &stubAction{name: "test-action", gateErr: errors.New("gate broken")}
	r := NewRunner(a)

	res := r.Handle(context.Background(), events.New(events.TypeTaskDispatch, "test", nil))

	if res.Success || res.Status != StatusFailed {
		t.Errorf("expected failed result, got success=%v status=%s", res.Success, res.Status)
	}
	if a.execCalled != 0 {
		t.Error("Execute was called despite a failing gate")
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	a := &stubAction{name: "test-action", applies: true, panics: true}
	r := NewRunner(a)

	// Must not propagate the panic.
	res := r.Handle(context.Background(), events.New(events.TypeTaskDispatch, "test", nil))

	if res.Success || res.Status != StatusFailed {
		t.Errorf("expected failed result after panic, got success=%v status=%s", res.Success, res.Status)
	}
}

func TestRunnerNeverReturnsHandlerError(t *testing.T) {
	a := &stubAction{name: "test-action", applies: true, execErr: errors.New("boom")}
	r := NewRunner(a)

	if err := r.HandleEvent(context.Background(), events.New(events.TypeTaskDispatch, "test", nil)); err != nil {
		t.Errorf("HandleEvent must swallow action failures, got %v", err)
	}
}

func TestResultFactories(t *testing.T) {
	if res := SuccessResult("out"); !res.Success || res.Status != StatusSuccess || res.Output != "out" {
		t.Errorf("unexpected success result: %+v", res)
	}
	if res := FailureResult("e"); res.Success || res.Status != StatusFailed || res.Error != "e" {
		t.Errorf("unexpected failure result: %+v", res)
	}
	res := SkippedResult("not applicable")
	if !res.Success || res.Status != StatusSkipped {
		t.Errorf("unexpected skipped result: %+v", res)
	}
	if res.Metadata["reason"] != "not applicable" {
		t.Errorf("skipped result missing reason, got %v", res.Metadata)
	}
}

func TestResultWithMetadata(t *testing.T) {
	base := SuccessResult(nil)
	enriched := base.WithMetadata("session_id", "abc")

	if enriched.Metadata["session_id"] != "abc" {
		t.Errorf("metadata not set: %v", enriched.Metadata)
	}
	if _, ok := base.Metadata["session_id"]; ok {
		t.Error("WithMetadata mutated the original result")
	}
}
