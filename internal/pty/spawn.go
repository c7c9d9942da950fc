package pty

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/scriptcast/internal/script"
)

// Command is a resolved program to run in a terminal.
type Command struct {
	Program     string
	Args        []string
	Env         []string
	Prompt      string
	QuitCommand *string
	Echo        script.EchoMode
}

// Size is the terminal size in character cells.
type Size struct {
	Width  uint16
	Height uint16
}

// Spawn starts cmd attached to a new terminal of the given size and blocks
// until its prompt appears or timeout elapses.
func Spawn(cmd Command, size Size, timeout time.Duration, opts Options) (*Session, error) {
	stream, proc, err := startProcess(cmd, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, cmd.Program, err)
	}

	opts.Prompt = cmd.Prompt
	opts.QuitCommand = cmd.QuitCommand
	opts.Timeout = timeout
	s := NewSession(stream, proc, opts)
	s.logger.Debug("spawned shell", "program", cmd.Program, "args", cmd.Args, "prompt", cmd.Prompt)

	if _, err := s.ReadUntilPrompt(); err != nil {
		_ = s.Close()
		if errors.Is(err, ErrReadTimeout) {
			return nil, fmt.Errorf("%w: %s: %v", ErrPromptTimeout, cmd.Program, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, cmd.Program, err)
	}
	return s, nil
}

// SpawnShell spawns the program described by sh with env appended to the
// inherited environment. Any temporary file the shell profile needs is
// removed before SpawnShell returns.
func SpawnShell(sh script.Shell, env []string, size Size, timeout time.Duration, opts Options) (*Session, error) {
	p, err := NewProfile(sh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	defer p.Close()

	cmd := p.Command
	cmd.Env = append(cmd.Env, env...)
	return Spawn(cmd, size, timeout, opts)
}
