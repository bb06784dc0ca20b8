package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants
const (
	TypeIssueCreated     = "issue-created"
	TypeMemoThreshold    = "memo-threshold-crossed"
	TypeMessageReceived  = "message-received"
	TypeTaskDispatch     = "task-dispatch"
	TypeSessionStarted   = "session-started"
	TypeSessionCompleted = "session-completed"
	TypeSessionFailed    = "session-failed"
	TypeSessionCancelled = "session-cancelled"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Event is an immutable agent event. Payload is copied at construction and
// must not be mutated by handlers.
type Event struct {
	ID        string
	Type      string
	Payload   map[string]any
	Timestamp time.Time
	Source    string
}

// New creates an Event with a generated ID and the current timestamp.
// The payload map is copied so later mutations by the caller are not observed
// by handlers.
func New(eventType, source string, payload map[string]any) Event {
	copied := make(map[string]any, len(payload))
	for k, v := range payload {
		copied[k] = v
	}

	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   copied,
		Timestamp: time.Now(),
		Source:    source,
	}
}

// PayloadString returns the payload value for key if it is a string, or "" otherwise.
func (e Event) PayloadString(key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PayloadDuration returns the payload value for key as a duration.
// Accepts time.Duration values, duration strings ("90s"), or a number of
// seconds.
func (e Event) PayloadDuration(key string) time.Duration {
	switch v := e.Payload[key].(type) {
	case time.Duration:
		return v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0
		}
		return d
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return 0
	}
}
