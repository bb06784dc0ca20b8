package journal

import (
	"context"
	"fmt"

	"github.com/aristath/conductor/internal/events"
)

// Recorder journals every event it sees. Subscribe it to the bus wildcard
// to capture the whole run. Session lifecycle events additionally update
// the sessions table, so the latest state of each session stays queryable
// without replaying the event stream.
type Recorder struct {
	store Store
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// HandleEvent implements events.Handler.
func (r *Recorder) HandleEvent(ctx context.Context, event events.Event) error {
	if err := r.store.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to journal event %s: %w", event.Type, err)
	}

	switch event.Type {
	case events.TypeSessionStarted, events.TypeSessionCompleted,
		events.TypeSessionFailed, events.TypeSessionCancelled:
		return r.recordSession(ctx, event)
	}
	return nil
}

func (r *Recorder) recordSession(ctx context.Context, event events.Event) error {
	rec := SessionRecord{
		ID:        event.PayloadString("session_id"),
		TaskID:    event.PayloadString("task_id"),
		Role:      event.PayloadString("role"),
		IssueID:   event.PayloadString("issue_id"),
		Engine:    event.PayloadString("engine"),
		Status:    event.PayloadString("status"),
		Output:    event.PayloadString("output"),
		Error:     event.PayloadString("error"),
		UpdatedAt: event.Timestamp,
	}
	if rec.ID == "" {
		return fmt.Errorf("session event %s carries no session_id", event.ID)
	}
	if err := r.store.UpsertSession(ctx, rec); err != nil {
		return fmt.Errorf("failed to journal session %s: %w", rec.ID, err)
	}
	return nil
}
