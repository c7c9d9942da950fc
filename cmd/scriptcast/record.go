package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/config"
	"github.com/user/scriptcast/internal/db"
	"github.com/user/scriptcast/internal/pty"
	"github.com/user/scriptcast/internal/recorder"
	"github.com/user/scriptcast/internal/script"
)

func runRecord(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var flags config.RecordFlags
	fs := newFlagSet("record", stderr)
	flags.AddFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(stderr, flags.Verbose)
	if fs.NArg() != 2 {
		return usagef("record expects <script.yaml> <output.cast>, got %d arguments", fs.NArg())
	}
	scriptPath, outPath := fs.Arg(0), fs.Arg(1)

	// Fail before spending the run when the output cannot be written.
	if !flags.Overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return fmt.Errorf("output file %q already exists (use --overwrite to replace it)", outPath)
		}
	}

	s, err := script.LoadFile(scriptPath)
	if err != nil {
		return err
	}
	if err := flags.Apply(&s.Settings); err != nil {
		return usagef("%v", err)
	}

	var catalog *catalogEntry
	if flags.Catalog != "" {
		catalog, err = openCatalogEntry(ctx, flags.Catalog, scriptPath, outPath)
		if err != nil {
			return err
		}
		defer catalog.close()
	}

	slog.Debug("recording", "script", scriptPath, "output", outPath, "shell", s.Settings.Shell.String())
	rec, recErr := recorder.New(recorder.Options{Logger: slog.Default()}).Record(ctx, s)

	var writeErr error
	if rec != nil {
		writeErr = asciicast.WriteFile(outPath, rec, flags.Overwrite)
	}
	if catalog != nil {
		catalog.finish(rec, errors.Join(recErr, writeErr))
	}

	if writeErr != nil {
		return writeErr
	}
	if errors.Is(recErr, pty.ErrQuitTimeout) {
		slog.Warn("shell did not exit in time; recording was written", "output", outPath, "error", recErr)
		return recErr
	}
	if recErr != nil {
		return recErr
	}
	fmt.Fprintf(stdout, "wrote %s (%d events, %s)\n", outPath, len(rec.Events), asciicast.TotalDuration(rec.Events))
	return nil
}

type catalogEntry struct {
	ctx      context.Context
	database *db.DB
	repo     *db.RecordingRepo
	row      *db.Recording
}

func openCatalogEntry(ctx context.Context, path, scriptPath, outPath string) (*catalogEntry, error) {
	digest, err := scriptDigest(scriptPath)
	if err != nil {
		return nil, err
	}
	database, err := db.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	entry := &catalogEntry{
		ctx:      ctx,
		database: database,
		repo:     db.NewRecordingRepo(database.SQL()),
		row: &db.Recording{
			ScriptPath:   scriptPath,
			OutputPath:   outPath,
			ScriptDigest: digest,
			Status:       db.StatusRunning,
		},
	}
	if err := entry.repo.Create(ctx, entry.row); err != nil {
		_ = database.Close()
		return nil, err
	}
	return entry, nil
}

func scriptDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open script %q: %w", path, err)
	}
	defer f.Close()
	return db.ScriptDigest(f)
}

// finish stores the outcome. Catalog failures are logged, not returned, so
// they never mask the result of the run itself.
func (c *catalogEntry) finish(rec *asciicast.Recording, runErr error) {
	switch {
	case runErr == nil:
		c.row.Status = db.StatusCompleted
	case errors.Is(runErr, pty.ErrQuitTimeout):
		c.row.Status = db.StatusQuitTimeout
		c.row.Error = runErr.Error()
	default:
		c.row.Status = db.StatusFailed
		c.row.Error = runErr.Error()
	}
	if rec != nil {
		c.row.Title = rec.Header.Title
		c.row.Width = int(rec.Header.Width)
		c.row.Height = int(rec.Header.Height)
		c.row.DurationMS = asciicast.TotalDuration(rec.Events).Milliseconds()
		c.row.EventCount = len(rec.Events)
	}
	// The run context may already be cancelled.
	if err := c.repo.UpdateStatus(context.WithoutCancel(c.ctx), c.row); err != nil {
		slog.Error("failed to update catalog", "id", c.row.ID, "error", err)
	}
}

func (c *catalogEntry) close() {
	if err := c.database.Close(); err != nil {
		slog.Error("failed to close catalog", "error", err)
	}
}
