package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/conductor/internal/events"
)

const queryTimeout = 5 * time.Second

// SaveEvent appends one event to the journal. Events are append-only.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var payload []byte
	if event.Payload != nil {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode event payload: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, source, payload, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, event.ID, event.Type, event.Source, string(payload), event.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// ListEvents returns journaled events newest first. An empty eventType
// matches all types. A limit of 0 or less means no limit.
func (s *SQLiteStore) ListEvents(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unlimited
	}

	query := `
		SELECT id, type, source, payload, timestamp
		FROM events
	`
	args := []any{}
	if eventType != "" {
		query += " WHERE type = ?"
		args = append(args, eventType)
	}
	query += " ORDER BY timestamp DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var payload sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Source, &payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &rec.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode payload for event %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
