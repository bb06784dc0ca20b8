package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertSession stores or updates a session's journaled state.
// Fields left empty in rec keep their previously stored value, so partial
// lifecycle updates never erase the output of an earlier one.
func (s *SQLiteStore) UpsertSession(ctx context.Context, rec SessionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, task_id, role, issue_id, engine, status, output, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			output = CASE WHEN excluded.output != '' THEN excluded.output ELSE sessions.output END,
			error = CASE WHEN excluded.error != '' THEN excluded.error ELSE sessions.error END,
			updated_at = excluded.updated_at
	`, rec.ID, rec.TaskID, rec.Role, rec.IssueID, rec.Engine, rec.Status, rec.Output, rec.Error, rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSession retrieves one journaled session.
// Returns a wrapped sql.ErrNoRows when the session is unknown.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rec SessionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, role, issue_id, engine, status, output, error, updated_at
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(&rec.ID, &rec.TaskID, &rec.Role, &rec.IssueID, &rec.Engine,
		&rec.Status, &rec.Output, &rec.Error, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return SessionRecord{}, fmt.Errorf("no journaled session %q: %w", sessionID, err)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("failed to query session: %w", err)
	}
	return rec, nil
}

// ListSessions returns journaled sessions, most recently updated first.
// A limit of 0 or less means no limit.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, role, issue_id, engine, status, output, error, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.Role, &rec.IssueID, &rec.Engine,
			&rec.Status, &rec.Output, &rec.Error, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
