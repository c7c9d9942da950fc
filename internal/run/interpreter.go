// Package run executes script instructions against a terminal session and
// assembles the resulting events into one timeline.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
	"github.com/user/scriptcast/internal/encode"
	"github.com/user/scriptcast/internal/script"
)

// ClearSequence returns the cursor home and erases the screen and scrollback.
const ClearSequence = "\r\x1b[H\x1b[2J\x1b[3J"

// Session is the part of a terminal session the interpreter drives.
type Session interface {
	encode.Sender
	ReadOnce() (*asciicast.Event, bool, error)
	ReadUntilPrompt() ([]asciicast.Event, error)
	ResetClock()
	NewEvent(data string) asciicast.Event
}

// Config holds the script-wide settings instructions are run with.
type Config struct {
	// Prompt is the text shown for the shell prompt in the recording.
	Prompt          string
	SecondaryPrompt string
	LineSplit       string
	TypeSpeed       time.Duration
	Clock           clock.Clock
	Logger          *slog.Logger
}

// ConfigFromSettings derives the interpreter config from script settings.
func ConfigFromSettings(s script.Settings) Config {
	return Config{
		Prompt:          s.Prompt,
		SecondaryPrompt: s.SecondaryPrompt,
		LineSplit:       s.Shell.LineSplitMarker(),
		TypeSpeed:       s.TypeSpeed,
	}
}

// Interpreter owns a session for the duration of a run.
type Interpreter struct {
	sess   Session
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger
}

func NewInterpreter(sess Session, cfg Config) *Interpreter {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Interpreter{sess: sess, cfg: cfg, clock: cfg.Clock, logger: cfg.Logger}
}

// Run executes every instruction in order and returns the assembled events.
// The context is checked between instructions; an instruction that has
// started always runs to completion or failure.
func (in *Interpreter) Run(ctx context.Context, instructions []script.Instruction) ([]asciicast.Event, error) {
	fragments := make([]Fragment, 0, len(instructions))
	for i, instr := range instructions {
		kind := script.Kind(instr)
		if err := ctx.Err(); err != nil {
			return nil, &InstructionError{Index: i, Kind: kind, Err: err}
		}

		start := in.clock.Now()
		in.logger.Debug("running instruction", "instruction", i, "kind", kind)
		f, err := in.Step(instr)
		if err != nil {
			return nil, &InstructionError{Index: i, Kind: kind, Err: err}
		}
		in.logger.Debug("instruction done", "instruction", i, "kind", kind,
			"events", len(f.Events), "elapsed", in.clock.Now().Sub(start))
		fragments = append(fragments, f)
	}
	return Assemble(fragments, in.cfg.Prompt, in.cfg.TypeSpeed), nil
}

// Step executes a single instruction and returns its fragment.
func (in *Interpreter) Step(instr script.Instruction) (Fragment, error) {
	switch i := instr.(type) {
	case script.RunCommand:
		return in.runCommand(i)
	case script.Interactive:
		return in.runInteractive(i)
	case script.Wait:
		return Fragment{Wait: i.Duration}, nil
	case script.Marker:
		return Fragment{Events: []asciicast.Event{asciicast.Marker(0, i.Label)}}, nil
	case script.Clear:
		return Fragment{Events: []asciicast.Event{
			asciicast.Output(in.cfg.TypeSpeed, ClearSequence),
			asciicast.Output(in.cfg.TypeSpeed, in.cfg.Prompt),
		}}, nil
	default:
		return Fragment{}, fmt.Errorf("unsupported instruction %T", instr)
	}
}

func (in *Interpreter) typeSpeed(override *time.Duration) time.Duration {
	if override != nil {
		return *override
	}
	return in.cfg.TypeSpeed
}

func (in *Interpreter) sendCommand(cmd script.Command) error {
	in.sess.ResetClock()
	if err := encode.SendCommand(in.sess, cmd); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

func (in *Interpreter) runCommand(c script.RunCommand) (Fragment, error) {
	if err := in.sendCommand(c.Command); err != nil {
		return Fragment{}, err
	}
	output, err := in.sess.ReadUntilPrompt()
	if err != nil {
		return Fragment{}, fmt.Errorf("read command output: %w", err)
	}
	if c.Hidden {
		return Fragment{}, nil
	}
	output = append(output, in.sess.NewEvent(in.cfg.Prompt))
	return Fragment{Events: in.typed(c.Command, in.typeSpeed(c.TypeSpeed), output)}, nil
}

func (in *Interpreter) runInteractive(c script.Interactive) (Fragment, error) {
	if err := in.sendCommand(c.Command); err != nil {
		return Fragment{}, err
	}
	speed := in.typeSpeed(c.TypeSpeed)
	output, err := in.pressKeys(c.Keys, speed)
	if err != nil {
		return Fragment{}, err
	}
	output = append(output, in.sess.NewEvent(in.cfg.Prompt))
	return Fragment{Events: in.typed(c.Command, speed, output)}, nil
}

func (in *Interpreter) typed(cmd script.Command, speed time.Duration, output []asciicast.Event) []asciicast.Event {
	events := slices.Collect(encode.Typed(cmd, speed, in.cfg.SecondaryPrompt, in.cfg.LineSplit))
	return append(events, output...)
}

// pressKeys feeds keys on a fixed schedule while draining output. A key is
// sent once typeSpeed has passed since the previous one, plus the duration of
// a wait key. Seeing the prompt ends the exchange early; once the keys run out
// the remaining output is read up to the prompt.
func (in *Interpreter) pressKeys(keys []script.Key, typeSpeed time.Duration) ([]asciicast.Event, error) {
	var events []asciicast.Event
	next := in.clock.Now().Add(typeSpeed)
	for {
		ev, prompt, err := in.sess.ReadOnce()
		if err != nil {
			return nil, fmt.Errorf("read interactive output: %w", err)
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if prompt {
			return events, nil
		}
		if in.clock.Now().Before(next) {
			continue
		}

		if len(keys) == 0 {
			rest, err := in.sess.ReadUntilPrompt()
			if err != nil {
				return nil, fmt.Errorf("read interactive output: %w", err)
			}
			return append(events, rest...), nil
		}
		key := keys[0]
		keys = keys[1:]
		if err := encode.SendKey(in.sess, key); err != nil {
			return nil, fmt.Errorf("send key: %w", err)
		}
		next = next.Add(encode.KeyDelay(key) + typeSpeed)
	}
}
