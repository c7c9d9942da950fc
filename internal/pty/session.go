package pty

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
)

// DefaultPollInterval bounds how long a single ReadOnce waits for output.
const DefaultPollInterval = 10 * time.Millisecond

// Process is the platform side of a spawned child: resizing its terminal and
// waiting for it to exit.
type Process interface {
	SetWindowSize(width, height uint16) error
	// WaitTimeout blocks until the process exits or d elapses, in which case
	// it returns errWaitTimeout.
	WaitTimeout(d time.Duration) error
	Kill() error
}

// Options configures a Session independently of how its process was started.
type Options struct {
	Prompt      string
	QuitCommand *string
	Timeout     time.Duration
	// Clock defaults to clock.Real().
	Clock        clock.Clock
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Session drives one child process through its terminal stream. All reads go
// through ReadOnce; the stream is drained by a single pump goroutine.
type Session struct {
	prompt      string
	quitCommand *string
	timeout     time.Duration
	poll        time.Duration
	clock       clock.Clock
	cursor      *clock.Cursor
	logger      *slog.Logger

	stream io.ReadWriteCloser
	proc   Process

	chunks  chan []byte
	done    chan struct{}
	readErr error
	eof     bool

	// pending holds bytes read but not yet emitted: an incomplete trailing
	// rune, or text that could be the start of the prompt.
	pending []byte

	closeOnce sync.Once
}

// NewSession wraps an already running process and its terminal stream. It does
// not wait for the prompt; Spawn does.
func NewSession(stream io.ReadWriteCloser, proc Process, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		prompt:      opts.Prompt,
		quitCommand: opts.QuitCommand,
		timeout:     opts.Timeout,
		poll:        opts.PollInterval,
		clock:       opts.Clock,
		cursor:      clock.NewCursor(opts.Clock),
		logger:      opts.Logger,
		stream:      stream,
		proc:        proc,
		chunks:      make(chan []byte, 64),
		done:        make(chan struct{}),
	}
	go s.readPump()
	return s
}

// readPump copies stream reads onto the chunks channel until the stream fails
// or is closed.
func (s *Session) readPump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				s.readErr = io.ErrClosedPipe
				close(s.chunks)
				return
			}
		}
		if err != nil {
			s.readErr = err
			close(s.chunks)
			return
		}
	}
}

// Prompt is the string the session waits for.
func (s *Session) Prompt() string { return s.prompt }

// Send writes data to the process input.
func (s *Session) Send(data []byte) error {
	if _, err := s.stream.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// SendLine writes text followed by a newline.
func (s *Session) SendLine(text string) error {
	return s.Send([]byte(text + "\n"))
}

// ResetClock rebases the event cursor to now.
func (s *Session) ResetClock() {
	s.cursor.Reset()
}

// NewEvent stamps an output event with the time since the previous one.
func (s *Session) NewEvent(data string) asciicast.Event {
	return asciicast.Output(s.cursor.Mark(), data)
}

// ReadOnce waits up to the poll interval for output. When the decoded text
// ends with the prompt, the prompt is stripped and promptSeen is true; the
// returned event carries only the text before it and is nil if there was none.
func (s *Session) ReadOnce() (ev *asciicast.Event, promptSeen bool, err error) {
	data, err := s.pollChunks()
	if err != nil {
		return nil, false, err
	}
	fresh := len(data) > 0
	if !fresh && len(s.pending) == 0 {
		return nil, false, nil
	}

	buf := append(s.pending, data...)
	s.pending = nil
	text, rest, err := splitValidUTF8(buf)
	if err != nil {
		return nil, false, err
	}

	if s.prompt != "" && strings.HasSuffix(text, s.prompt) {
		s.pending = rest
		text = strings.TrimSuffix(text, s.prompt)
		if text == "" {
			return nil, true, nil
		}
		out := s.NewEvent(text)
		return &out, true, nil
	}

	// Hold back a trailing partial prompt while more output may follow, but
	// only for one poll: a quiet stream releases it.
	hold := 0
	if fresh {
		hold = partialSuffix(text, s.prompt)
	}
	s.pending = append([]byte(text[len(text)-hold:]), rest...)
	text = text[:len(text)-hold]
	if text == "" {
		return nil, false, nil
	}
	out := s.NewEvent(text)
	return &out, false, nil
}

// pollChunks returns everything the pump has delivered, waiting up to one poll
// interval for the first chunk.
func (s *Session) pollChunks() ([]byte, error) {
	if s.eof {
		return nil, s.streamErr()
	}

	timer := time.NewTimer(s.poll)
	defer timer.Stop()

	var data []byte
	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			s.eof = true
			return nil, s.streamErr()
		}
		data = chunk
	case <-timer.C:
		return nil, nil
	}

	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				// Deliver what we have; the next poll reports the closed stream.
				s.eof = true
				return data, nil
			}
			data = append(data, chunk...)
		default:
			return data, nil
		}
	}
}

func (s *Session) streamErr() error {
	if s.readErr == nil || errors.Is(s.readErr, io.EOF) {
		return ErrStreamClosed
	}
	return fmt.Errorf("%w: %v", ErrStreamClosed, s.readErr)
}

// ReadUntilPrompt reads until the prompt is seen, failing with ErrReadTimeout
// once the session timeout has elapsed.
func (s *Session) ReadUntilPrompt() ([]asciicast.Event, error) {
	start := s.clock.Now()
	var events []asciicast.Event
	for {
		ev, prompt, err := s.ReadOnce()
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if prompt {
			return events, nil
		}
		if elapsed := s.clock.Now().Sub(start); elapsed > s.timeout {
			return nil, fmt.Errorf("%w after %v", ErrReadTimeout, elapsed.Round(time.Millisecond))
		}
	}
}

// Quit sends the quit command, if any, and waits for the process to exit. A
// process still running after the timeout is killed and ErrQuitTimeout is
// returned.
func (s *Session) Quit() error {
	if s.quitCommand != nil {
		if err := s.SendLine(*s.quitCommand); err != nil {
			return fmt.Errorf("send quit command: %w", err)
		}
	}
	if s.proc == nil {
		return nil
	}

	err := s.proc.WaitTimeout(s.timeout)
	if errors.Is(err, errWaitTimeout) {
		s.logger.Warn("shell did not exit, killing it", "timeout", s.timeout)
		_ = s.proc.Kill()
		return fmt.Errorf("%w (%v)", ErrQuitTimeout, s.timeout)
	}
	return err
}

// Close kills the process if it is still running and closes the stream. It
// is safe to call Close multiple times.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.proc != nil {
			_ = s.proc.Kill()
		}
		err = s.stream.Close()
	})
	return err
}

// splitValidUTF8 decodes buf, leaving an incomplete trailing rune in rest.
func splitValidUTF8(buf []byte) (text string, rest []byte, err error) {
	if utf8.Valid(buf) {
		return string(buf), nil, nil
	}
	for i := 1; i < utf8.UTFMax && i <= len(buf); i++ {
		cut := len(buf) - i
		if !utf8.RuneStart(buf[cut]) {
			continue
		}
		if !utf8.FullRune(buf[cut:]) && utf8.Valid(buf[:cut]) {
			rest = make([]byte, i)
			copy(rest, buf[cut:])
			return string(buf[:cut]), rest, nil
		}
		break
	}
	return "", nil, fmt.Errorf("%w: %q", ErrEncoding, buf)
}

// partialSuffix returns the length of the longest proper prefix of prompt
// that text ends with.
func partialSuffix(text, prompt string) int {
	for n := min(len(prompt)-1, len(text)); n > 0; n-- {
		if strings.HasSuffix(text, prompt[:n]) {
			return n
		}
	}
	return 0
}
