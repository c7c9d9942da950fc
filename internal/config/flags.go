package config

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/pflag"

	"github.com/user/scriptcast/internal/script"
)

// RecordFlags mirrors every script setting on the command line. A flag
// overrides the script only when it was set explicitly; list flags append.
type RecordFlags struct {
	Width              uint16
	Height             uint16
	Title              string
	Shell              string
	Environment        []string
	EnvironmentCapture []string
	envCapAlias        []string
	TypeSpeed          string
	Prompt             string
	SecondaryPrompt    string
	Timeout            string

	Overwrite bool
	Catalog   string
	Verbose   bool

	fs *pflag.FlagSet
}

func (f *RecordFlags) AddFlags(fs *pflag.FlagSet, cfg *Config) {
	f.fs = fs
	catalog := ""
	if cfg != nil {
		catalog = cfg.Catalog
	}
	fs.Uint16Var(&f.Width, "width", 0, "terminal width (default: width of the current terminal)")
	fs.Uint16Var(&f.Height, "height", 0, "terminal height (default: height of the current terminal)")
	fs.StringVarP(&f.Title, "title", "t", "", "title of the asciicast")
	fs.StringVar(&f.Shell, "shell", "bash", `shell to run commands in: bash, python, or a custom command line`)
	fs.StringArrayVarP(&f.Environment, "environment", "e", nil, "environment variable for the shell, NAME=VALUE (repeatable)")
	fs.StringArrayVar(&f.EnvironmentCapture, "environment-capture", []string{"TERM"}, "environment variable to capture into the header (repeatable)")
	fs.StringArrayVar(&f.envCapAlias, "env-cap", nil, "alias for --environment-capture")
	fs.StringVarP(&f.TypeSpeed, "type-speed", "d", script.FormatDuration(script.DefaultTypeSpeed), "time between key presses, e.g. 150ms")
	fs.StringVar(&f.TypeSpeed, "delay", script.FormatDuration(script.DefaultTypeSpeed), "alias for --type-speed")
	fs.StringVar(&f.Prompt, "prompt", script.DefaultPrompt, "prompt shown in the recording")
	fs.StringVar(&f.SecondaryPrompt, "secondary-prompt", script.DefaultSecondaryPrompt, "secondary prompt shown in the recording")
	fs.StringVar(&f.Timeout, "timeout", script.FormatDuration(script.DefaultTimeout), "maximum time to wait for a command to return to the prompt")
	fs.BoolVar(&f.Overwrite, "overwrite", false, "overwrite an existing output file")
	fs.StringVar(&f.Catalog, "catalog", catalog, "sqlite catalog to record the run in")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "log debug output")
}

func (f *RecordFlags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// Apply merges the flags into settings decoded from a script.
func (f *RecordFlags) Apply(s *script.Settings) error {
	if f.changed("width") {
		w := f.Width
		s.Width = &w
	}
	if f.changed("height") {
		h := f.Height
		s.Height = &h
	}
	if f.changed("title") {
		s.Title = f.Title
	}
	if f.changed("prompt") {
		s.Prompt = f.Prompt
	}
	if f.changed("secondary-prompt") {
		s.SecondaryPrompt = f.SecondaryPrompt
	}
	if f.changed("type-speed") || f.changed("delay") {
		d, err := script.ParseDuration(f.TypeSpeed)
		if err != nil {
			return fmt.Errorf("invalid --type-speed: %w", err)
		}
		s.TypeSpeed = d
	}
	if f.changed("timeout") {
		d, err := script.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		s.Timeout = d
	}
	if f.changed("shell") {
		sh, err := ParseShellFlag(f.Shell, s.Prompt)
		if err != nil {
			return err
		}
		s.Shell = sh
	}
	for _, raw := range f.Environment {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --environment %q: expected NAME=VALUE", raw)
		}
		s.Environment = append(s.Environment, script.EnvVar{Name: name, Value: value})
	}
	s.EnvironmentCapture = append(s.EnvironmentCapture, f.EnvironmentCapture...)
	s.EnvironmentCapture = append(s.EnvironmentCapture, f.envCapAlias...)
	return nil
}

// ParseShellFlag resolves --shell. Anything other than a built-in name is
// split like a shell command line into a custom shell that waits for prompt.
func ParseShellFlag(value, prompt string) (script.Shell, error) {
	if sh, err := script.ParseShell(value); err == nil {
		return sh, nil
	}
	words, err := shellquote.Split(value)
	if err != nil {
		return script.Shell{}, fmt.Errorf("invalid --shell %q: %w", value, err)
	}
	if len(words) == 0 {
		return script.Shell{}, fmt.Errorf("invalid --shell: empty command")
	}
	return script.Shell{
		Kind:      script.ShellCustom,
		Program:   words[0],
		Args:      words[1:],
		Prompt:    prompt,
		LineSplit: " \\",
	}, nil
}
