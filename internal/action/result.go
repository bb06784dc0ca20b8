package action

import (
	"time"
)

// Status represents the outcome state of an action invocation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Result is the immutable outcome of one action invocation.
// Construct results through the factory functions below so Success and
// Status never disagree.
type Result struct {
	Success     bool
	Status      Status
	Output      any
	Error       string
	Metadata    map[string]any
	StartedAt   time.Time
	CompletedAt time.Time
}

// SuccessResult creates a successful result carrying the given output.
func SuccessResult(output any) Result {
	return Result{
		Success:  true,
		Status:   StatusSuccess,
		Output:   output,
		Metadata: make(map[string]any),
	}
}

// FailureResult creates a failed result carrying an error message.
func FailureResult(errMsg string) Result {
	return Result{
		Success:  false,
		Status:   StatusFailed,
		Error:    errMsg,
		Metadata: make(map[string]any),
	}
}

// SkippedResult creates a skipped result. A skip is not a failure: the
// action's precondition simply did not hold for this event.
func SkippedResult(reason string) Result {
	return Result{
		Success:  true,
		Status:   StatusSkipped,
		Metadata: map[string]any{"reason": reason},
	}
}

// WithMetadata returns a copy of the result with the key set in its metadata.
func (r Result) WithMetadata(key string, value any) Result {
	meta := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Metadata = meta
	return r
}
