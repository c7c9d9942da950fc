package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/user/scriptcast/internal/ansi"
	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/config"
	"github.com/user/scriptcast/internal/db"
)

const previewWidth = 40

func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := newFlagSet("history", stderr)
	catalog := fs.String("catalog", cfg.Catalog, "sqlite catalog to list")
	limit := fs.Int("limit", 20, "maximum number of recordings to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usagef("history takes no arguments")
	}
	if *catalog == "" {
		return usagef("no catalog configured: pass --catalog or set Catalog in %s", cfg.ConfigPath)
	}

	database, err := db.Open(ctx, *catalog)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer database.Close()

	recordings, err := db.NewRecordingRepo(database.SQL()).List(ctx, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tSIZE\tDURATION\tEVENTS\tOUTPUT\tTITLE")
	for _, rec := range recordings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%s\t%d\t%s\t%s\n",
			shortID(rec.ID),
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.Status,
			rec.Width, rec.Height,
			time.Duration(rec.DurationMS)*time.Millisecond,
			rec.EventCount,
			rec.OutputPath,
			historyTitle(rec),
		)
	}
	return tw.Flush()
}

// historyTitle falls back to the first line of output when a recording has
// no title.
func historyTitle(rec *db.Recording) string {
	if rec.Title != "" {
		return rec.Title
	}
	if rec.Status == db.StatusFailed {
		return ""
	}
	cast, err := asciicast.ReadFile(rec.OutputPath)
	if err != nil {
		return ""
	}
	return ansi.Preview(outputText(cast), previewWidth)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
