package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type RecordingRepo struct {
	db *sql.DB
}

func NewRecordingRepo(db *sql.DB) *RecordingRepo {
	return &RecordingRepo{db: db}
}

const recordingColumns = `id, script_path, output_path, title, width, height, duration_ms, event_count, script_digest, status, error, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RecordingRepo) Create(ctx context.Context, rec *Recording) error {
	if rec == nil {
		return fmt.Errorf("recording is required")
	}
	if rec.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = nowUTC()
	}
	if strings.TrimSpace(rec.Status) == "" {
		rec.Status = StatusRunning
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO recordings (`+recordingColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		rec.ID,
		rec.ScriptPath,
		rec.OutputPath,
		rec.Title,
		rec.Width,
		rec.Height,
		rec.DurationMS,
		rec.EventCount,
		rec.ScriptDigest,
		rec.Status,
		rec.Error,
		formatTimestamp(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

// Get returns nil, nil when no recording has the given id.
func (r *RecordingRepo) Get(ctx context.Context, id string) (*Recording, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recording %q: %w", id, err)
	}
	return rec, nil
}

// List returns the newest recordings first.
func (r *RecordingRepo) List(ctx context.Context, limit int) ([]*Recording, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recordingColumns+`
FROM recordings
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	out := make([]*Recording, 0, limit)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating recordings: %w", err)
	}
	return out, nil
}

// UpdateStatus stores the outcome of a run along with the final recording metrics.
func (r *RecordingRepo) UpdateStatus(ctx context.Context, rec *Recording) error {
	if rec == nil {
		return fmt.Errorf("recording is required")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE recordings
SET title = ?, width = ?, height = ?, duration_ms = ?, event_count = ?, status = ?, error = ?
WHERE id = ?
`,
		rec.Title,
		rec.Width,
		rec.Height,
		rec.DurationMS,
		rec.EventCount,
		rec.Status,
		rec.Error,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recording %q: %w", rec.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows for recording %q: %w", rec.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("recording %q not found", rec.ID)
	}
	return nil
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	var createdAtRaw string
	if err := row.Scan(
		&rec.ID,
		&rec.ScriptPath,
		&rec.OutputPath,
		&rec.Title,
		&rec.Width,
		&rec.Height,
		&rec.DurationMS,
		&rec.EventCount,
		&rec.ScriptDigest,
		&rec.Status,
		&rec.Error,
		&createdAtRaw,
	); err != nil {
		return nil, err
	}
	createdAt, err := parseTimestamp(createdAtRaw)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = createdAt
	return &rec, nil
}
