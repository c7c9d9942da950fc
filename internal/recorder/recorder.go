// Package recorder runs a script end to end: it sizes the terminal, spawns
// the shell, interprets the instructions and builds the recording header.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/term"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
	"github.com/user/scriptcast/internal/pty"
	"github.com/user/scriptcast/internal/run"
	"github.com/user/scriptcast/internal/script"
)

var ErrTerminalSizeUnavailable = errors.New("terminal width or height not provided and could not get terminal size")

// Session is a spawned shell as the recorder sees it.
type Session interface {
	run.Session
	Quit() error
	Close() error
}

// SpawnFunc starts a shell and waits for its first prompt.
type SpawnFunc func(sh script.Shell, env []string, size pty.Size, timeout time.Duration, opts pty.Options) (Session, error)

type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger

	// The fields below default to the real PTY, terminal and environment.
	Spawn        SpawnFunc
	TerminalSize func() (width, height int, err error)
	LookupEnv    func(key string) (string, bool)
	LookPath     func(file string) (string, error)
}

type Recorder struct {
	opts Options
}

func New(opts Options) *Recorder {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Spawn == nil {
		opts.Spawn = spawnPTY
	}
	if opts.TerminalSize == nil {
		opts.TerminalSize = func() (int, int, error) { return term.GetSize(int(os.Stdout.Fd())) }
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return &Recorder{opts: opts}
}

func spawnPTY(sh script.Shell, env []string, size pty.Size, timeout time.Duration, opts pty.Options) (Session, error) {
	sess, err := pty.SpawnShell(sh, env, size, timeout, opts)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Record runs s and returns the finished recording. If the shell fails to
// exit after the last instruction, the complete recording is returned along
// with an error wrapping pty.ErrQuitTimeout. Any other failure returns no
// recording.
func (r *Recorder) Record(ctx context.Context, s *script.Script) (*asciicast.Recording, error) {
	settings := s.Settings
	size, err := r.resolveSize(settings)
	if err != nil {
		return nil, err
	}

	started := r.opts.Clock.Now()
	sess, err := r.opts.Spawn(settings.Shell, envList(settings.Environment), size, settings.Timeout, pty.Options{
		Clock:  r.opts.Clock,
		Logger: r.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not start shell: %w", err)
	}
	defer sess.Close()

	cfg := run.ConfigFromSettings(settings)
	cfg.Clock = r.opts.Clock
	cfg.Logger = r.opts.Logger
	events, err := run.NewInterpreter(sess, cfg).Run(ctx, s.Instructions)
	if err != nil {
		return nil, fmt.Errorf("error running instructions: %w", err)
	}

	quitErr := sess.Quit()
	if quitErr != nil && !errors.Is(quitErr, pty.ErrQuitTimeout) {
		return nil, fmt.Errorf("could not exit shell: %w", quitErr)
	}

	duration := asciicast.TotalDuration(events)
	rec := &asciicast.Recording{
		Header: asciicast.Header{
			Width:     size.Width,
			Height:    size.Height,
			Timestamp: started,
			Duration:  &duration,
			Command:   settings.Shell.String(),
			Title:     settings.Title,
			Env:       r.headerEnv(settings),
		},
		Events: events,
	}
	r.opts.Logger.Debug("recording finished", "events", len(events), "duration", duration)

	if quitErr != nil {
		return rec, fmt.Errorf("could not exit shell: %w", quitErr)
	}
	return rec, nil
}

// resolveSize takes width and height from settings, filling in whichever is
// missing from the invoking terminal.
func (r *Recorder) resolveSize(s script.Settings) (pty.Size, error) {
	if s.Width != nil && s.Height != nil {
		return pty.Size{Width: *s.Width, Height: *s.Height}, nil
	}
	w, h, err := r.opts.TerminalSize()
	if err != nil || w <= 0 || h <= 0 || w > 0xffff || h > 0xffff {
		return pty.Size{}, ErrTerminalSizeUnavailable
	}
	size := pty.Size{Width: uint16(w), Height: uint16(h)}
	if s.Width != nil {
		size.Width = *s.Width
	}
	if s.Height != nil {
		size.Height = *s.Height
	}
	return size, nil
}

// headerEnv merges explicit variables, captured variables that were not set
// explicitly, and SHELL.
func (r *Recorder) headerEnv(s script.Settings) map[string]string {
	env := make(map[string]string, len(s.Environment)+len(s.EnvironmentCapture)+1)
	for _, v := range s.Environment {
		env[v.Name] = v.Value
	}
	for _, name := range s.EnvironmentCapture {
		if _, ok := env[name]; ok {
			continue
		}
		value, _ := r.opts.LookupEnv(name)
		env[name] = value
	}

	program, path := s.Shell.ResolveProgram(r.opts.LookPath)
	if path != "" {
		env["SHELL"] = path
	} else {
		env["SHELL"] = program
	}
	return env
}

func envList(vars []script.EnvVar) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}
