package db

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Recording status values.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusQuitTimeout = "quit_timeout"
)

// Recording is one catalog row describing a produced (or attempted) cast file.
type Recording struct {
	ID           string    `json:"id"`
	ScriptPath   string    `json:"script_path"`
	OutputPath   string    `json:"output_path"`
	Title        string    `json:"title,omitempty"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	DurationMS   int64     `json:"duration_ms"`
	EventCount   int       `json:"event_count"`
	ScriptDigest string    `json:"script_digest"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}

// ScriptDigest returns the hex blake3 digest of a script document.
func ScriptDigest(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash script: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// timestampLayout is fixed width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = nowUTC()
	}
	return ts.UTC().Format(timestampLayout)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}
