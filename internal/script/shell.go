package script

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

type ShellKind int

const (
	ShellBash ShellKind = iota
	ShellPython
	ShellCustom
)

// EchoMode says whether the terminal echoes typed input back to the recorder.
type EchoMode int

const (
	// EchoOff clears the terminal ECHO flag before the program starts, so
	// captured output holds only what the program itself prints.
	EchoOff EchoMode = iota
	EchoOn
)

func ParseEchoMode(s string) (EchoMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "false", "no":
		return EchoOff, nil
	case "on", "true", "yes":
		return EchoOn, nil
	default:
		return EchoOff, fmt.Errorf("%w: unknown echo mode %q, must be on or off", ErrInvalidScript, s)
	}
}

func (m EchoMode) String() string {
	if m == EchoOn {
		return "on"
	}
	return "off"
}

// Shell selects the program driven by the recorder. Program, Args, Prompt,
// LineSplit and QuitCommand are only meaningful for ShellCustom.
type Shell struct {
	Kind        ShellKind
	Program     string
	Args        []string
	Prompt      string
	LineSplit   string
	QuitCommand *string
	Echo        EchoMode
}

const builtinLineSplit = " \\"

func Bash() Shell   { return Shell{Kind: ShellBash} }
func Python() Shell { return Shell{Kind: ShellPython} }

// ParseShell resolves a built-in shell name.
func ParseShell(name string) (Shell, error) {
	switch name {
	case "bash", "Bash":
		return Bash(), nil
	case "python", "Python":
		return Python(), nil
	default:
		return Shell{}, fmt.Errorf("%w: unsupported shell %q (expected bash, python, or a custom shell map)", ErrInvalidScript, name)
	}
}

// programCandidates lists the executables that can run the shell, most
// preferred first.
func (s Shell) programCandidates() []string {
	switch s.Kind {
	case ShellBash:
		return []string{"bash"}
	case ShellPython:
		return []string{"python3", "python"}
	default:
		return []string{s.Program}
	}
}

// ResolveProgram picks the executable that runs the shell. It returns the
// first candidate lookPath finds, with its path; when none is found it
// returns the preferred name and an empty path.
func (s Shell) ResolveProgram(lookPath func(file string) (string, error)) (name, path string) {
	candidates := s.programCandidates()
	for _, c := range candidates {
		if p, err := lookPath(c); err == nil {
			return c, p
		}
	}
	return candidates[0], ""
}

// LineSplitMarker is typed at the end of every line but the last of a
// multi-line command.
func (s Shell) LineSplitMarker() string {
	if s.Kind == ShellCustom {
		return s.LineSplit
	}
	return builtinLineSplit
}

// String renders the shell as a command line; custom program arguments are
// shell-quoted.
func (s Shell) String() string {
	switch s.Kind {
	case ShellBash:
		return "bash"
	case ShellPython:
		return "python"
	default:
		return shellquote.Join(append([]string{s.Program}, s.Args...)...)
	}
}

// ParseEnvVar splits "NAME=VALUE"; a bare name gets an empty value.
func ParseEnvVar(s string) EnvVar {
	name, value, _ := strings.Cut(s, "=")
	return EnvVar{Name: name, Value: value}
}
