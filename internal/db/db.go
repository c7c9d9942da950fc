// Package db is the sqlite catalog of recordings produced by scriptcast.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// BusyTimeoutMillis is how long a catalog connection waits for a lock held by
// another scriptcast process before failing.
const BusyTimeoutMillis = 5000

// catalogPragmas run on every open. WAL lets `play` and `history` read the
// catalog while `record` writes to it.
var catalogPragmas = []string{
	fmt.Sprintf(`PRAGMA busy_timeout = %d`, BusyTimeoutMillis),
	`PRAGMA journal_mode = WAL`,
	`PRAGMA synchronous = NORMAL`,
}

// DB is an open catalog with its schema migrated to the latest version.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the catalog at path, creating parent directories.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory %q: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog at %q: %w", path, err)
	}

	// One connection keeps the pragmas in effect for every statement.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	for _, pragma := range catalogPragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// SQL exposes the underlying handle for repositories.
func (d *DB) SQL() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
