package pty

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/user/scriptcast/internal/script"
)

// BashPrompt is the PS1 the bash profile installs. It is only used to detect
// readiness; recordings show the configured display prompt instead.
const BashPrompt = "SCRIPTCAST_PROMPT"

const pythonPrompt = ">>> "

const bashRC = `PS1='` + BashPrompt + `'
PS2=''
unset PROMPT_COMMAND
unset HISTFILE
bind 'set enable-bracketed-paste off' 2>/dev/null
`

// Profile is the launch recipe for a shell. Close releases any temporary
// files the recipe created.
type Profile struct {
	Command Command
	cleanup func()
}

// NewProfile resolves sh into a runnable command.
func NewProfile(sh script.Shell) (*Profile, error) {
	switch sh.Kind {
	case script.ShellBash:
		return bashProfile(sh)
	case script.ShellPython:
		return pythonProfile(sh), nil
	default:
		return &Profile{Command: Command{
			Program:     sh.Program,
			Args:        sh.Args,
			Prompt:      sh.Prompt,
			QuitCommand: sh.QuitCommand,
			Echo:        sh.Echo,
		}}, nil
	}
}

func bashProfile(sh script.Shell) (*Profile, error) {
	f, err := os.CreateTemp("", "scriptcast-*.bashrc")
	if err != nil {
		return nil, fmt.Errorf("create bash rc file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.WriteString(bashRC); err != nil {
		f.Close()
		cleanup()
		return nil, fmt.Errorf("write bash rc file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("write bash rc file: %w", err)
	}

	program, _ := sh.ResolveProgram(exec.LookPath)
	quit := "exit"
	return &Profile{
		Command: Command{
			Program:     program,
			Args:        []string{"--noprofile", "--rcfile", path, "-i"},
			Env:         []string{"PS1=" + BashPrompt},
			Prompt:      BashPrompt,
			QuitCommand: &quit,
			Echo:        sh.Echo,
		},
		cleanup: cleanup,
	}, nil
}

func pythonProfile(sh script.Shell) *Profile {
	program, _ := sh.ResolveProgram(exec.LookPath)
	quit := "exit()"
	return &Profile{Command: Command{
		Program:     program,
		Args:        []string{"-q", "-i"},
		Env:         []string{"PYTHON_BASIC_REPL=1"},
		Prompt:      pythonPrompt,
		QuitCommand: &quit,
		Echo:        sh.Echo,
	}}
}

// Close removes the profile's temporary files.
func (p *Profile) Close() {
	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
}
