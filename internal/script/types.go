// Package script holds the recorder's input data model: settings, shell
// selection and the ordered instruction list, plus their YAML decoding.
package script

import "time"

const (
	DefaultTypeSpeed       = 100 * time.Millisecond
	DefaultPrompt          = "$ "
	DefaultSecondaryPrompt = "> "
	DefaultTimeout         = 30 * time.Second
)

// Script is a decoded script document.
type Script struct {
	Settings     Settings
	Instructions []Instruction
}

// Settings controls the terminal, shell and typing pace of a run.
type Settings struct {
	Width              *uint16
	Height             *uint16
	Title              string
	Shell              Shell
	Environment        []EnvVar
	EnvironmentCapture []string
	TypeSpeed          time.Duration
	Prompt             string
	SecondaryPrompt    string
	Timeout            time.Duration
}

// DefaultSettings returns the settings used for every field a script leaves out.
func DefaultSettings() Settings {
	return Settings{
		Shell:           Bash(),
		TypeSpeed:       DefaultTypeSpeed,
		Prompt:          DefaultPrompt,
		SecondaryPrompt: DefaultSecondaryPrompt,
		Timeout:         DefaultTimeout,
	}
}

type EnvVar struct {
	Name  string
	Value string
}

// Instruction is one step of a script. The set of implementations is closed:
// RunCommand, Interactive, Wait, Marker and Clear.
type Instruction interface {
	instruction()
}

// RunCommand types a command at the prompt and captures its output. Hidden
// commands run but contribute no events.
type RunCommand struct {
	Command   Command
	Hidden    bool
	TypeSpeed *time.Duration
}

// Interactive starts a command and then feeds it keys one by one.
type Interactive struct {
	Command   Command
	Keys      []Key
	TypeSpeed *time.Duration
}

type Wait struct {
	Duration time.Duration
}

type Marker struct {
	Label string
}

type Clear struct{}

func (RunCommand) instruction()  {}
func (Interactive) instruction() {}
func (Wait) instruction()        {}
func (Marker) instruction()      {}
func (Clear) instruction()       {}

// Kind names an instruction for logs and error messages.
func Kind(in Instruction) string {
	switch in.(type) {
	case RunCommand:
		return "command"
	case Interactive:
		return "interactive"
	case Wait:
		return "wait"
	case Marker:
		return "marker"
	case Clear:
		return "clear"
	default:
		return "unknown"
	}
}

// Command is what gets typed at the prompt: SingleLine, MultiLine or
// ControlCommand.
type Command interface {
	command()
}

type SingleLine struct {
	Text string
}

type MultiLine struct {
	Lines []string
}

type ControlCommand struct {
	Code ControlCode
}

func (SingleLine) command()     {}
func (MultiLine) command()      {}
func (ControlCommand) command() {}

// Key is one step of an interactive session: KeyChar, KeyString, KeyControl
// or KeyWait.
type Key interface {
	key()
}

type KeyChar struct {
	Char rune
}

type KeyString struct {
	Text string
}

type KeyControl struct {
	Code ControlCode
}

type KeyWait struct {
	Duration time.Duration
}

func (KeyChar) key()    {}
func (KeyString) key()  {}
func (KeyControl) key() {}
func (KeyWait) key()    {}
