package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/scriptcast/internal/api"
	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
	"github.com/user/scriptcast/internal/config"
	"github.com/user/scriptcast/internal/db"
	"github.com/user/scriptcast/internal/hub"
	"github.com/user/scriptcast/internal/server"
)

// drainDelay gives clients time to receive the end message before shutdown.
const drainDelay = time.Second

func runPlay(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := newFlagSet("play", stderr)
	addr := fs.String("addr", cfg.Addr, "address to serve /ws and /api on")
	speed := fs.Float64("speed", 1.0, "playback speed multiplier")
	catalog := fs.String("catalog", cfg.Catalog, "sqlite catalog served at /api/recordings")
	token := fs.String("token", cfg.Token, "token viewers must present (generated and saved when empty)")
	wait := fs.Bool("wait", true, "wait for the first viewer before starting playback")
	verbose := fs.BoolP("verbose", "v", false, "log debug output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(stderr, *verbose)
	if fs.NArg() != 1 {
		return usagef("play expects exactly one recording, got %d arguments", fs.NArg())
	}
	if *speed <= 0 {
		return usagef("--speed must be positive, got %v", *speed)
	}

	rec, err := asciicast.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	if *token == "" {
		if err := cfg.EnsureToken(); err != nil {
			return err
		}
		*token = cfg.Token
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := hub.New(*token, nil)
	player := hub.NewPlayer(h, clock.Real(), *speed)
	h.SetOnControl(player.Control)
	go h.Run(ctx)

	var apiHandler http.Handler
	if *catalog != "" {
		database, err := db.Open(ctx, *catalog)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer database.Close()
		apiHandler = api.NewRouter(database.SQL(), *token)
	}

	srv := server.New(*addr, h, apiHandler)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start(ctx) }()

	fmt.Fprintf(stdout, "replaying %s at ws://%s/ws?token=%s\n", fs.Arg(0), displayAddr(*addr), *token)

	if *wait {
		if err := waitForViewer(ctx, h, srvErr); err != nil {
			return err
		}
	}
	slog.Info("playback started", "events", len(rec.Events), "speed", *speed)
	if err := player.Play(ctx, rec); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	slog.Info("playback finished")

	select {
	case <-time.After(drainDelay):
	case <-ctx.Done():
	case err := <-srvErr:
		return err
	}
	cancel()
	return <-srvErr
}

func waitForViewer(ctx context.Context, h *hub.Hub, srvErr <-chan error) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for h.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			return nil
		case err := <-srvErr:
			return err
		case <-ticker.C:
		}
	}
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
