package pty

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
)

// fakeStream is a terminal whose output is fed by the test and whose input
// is captured.
type fakeStream struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu     sync.Mutex
	input  bytes.Buffer
	closed bool
}

func newFakeStream() *fakeStream {
	r, w := io.Pipe()
	return &fakeStream{r: r, w: w}
}

func (f *fakeStream) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *fakeStream) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	return f.input.Write(p)
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return f.r.Close()
}

func (f *fakeStream) emit(t *testing.T, s string) {
	t.Helper()
	if _, err := f.w.Write([]byte(s)); err != nil {
		t.Fatalf("emit %q: %v", s, err)
	}
}

func (f *fakeStream) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.String()
}

type fakeProcess struct {
	exited chan struct{}
	mu     sync.Mutex
	killed bool
}

func newFakeProcess() *fakeProcess { return &fakeProcess{exited: make(chan struct{})} }

func (p *fakeProcess) SetWindowSize(uint16, uint16) error { return nil }

func (p *fakeProcess) WaitTimeout(d time.Duration) error {
	select {
	case <-p.exited:
		return nil
	case <-time.After(d):
		return errWaitTimeout
	}
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = true
	return nil
}

func newTestSession(t *testing.T, opts Options) (*Session, *fakeStream, *fakeProcess) {
	t.Helper()
	if opts.Prompt == "" {
		opts.Prompt = "$ "
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	stream := newFakeStream()
	proc := newFakeProcess()
	s := NewSession(stream, proc, opts)
	t.Cleanup(func() { s.Close() })
	return s, stream, proc
}

func TestReadOnceOutputBeforePrompt(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{})
	stream.emit(t, "hello$ ")

	ev, prompt, err := s.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce: %v", err)
	}
	if !prompt {
		t.Fatal("prompt not detected")
	}
	if ev == nil || ev.Data != "hello" || ev.Kind != asciicast.KindOutput {
		t.Fatalf("event = %+v, want output %q", ev, "hello")
	}
}

func TestReadOncePromptOnly(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{Prompt: "<PROMPT>"})
	stream.emit(t, "<PROMPT>")

	ev, prompt, err := s.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce: %v", err)
	}
	if ev != nil || !prompt {
		t.Fatalf("ReadOnce = (%+v, %v), want (nil, true)", ev, prompt)
	}
}

func TestReadOnceNoData(t *testing.T) {
	s, _, _ := newTestSession(t, Options{PollInterval: 5 * time.Millisecond})
	ev, prompt, err := s.ReadOnce()
	if err != nil || ev != nil || prompt {
		t.Fatalf("ReadOnce = (%+v, %v, %v), want nothing", ev, prompt, err)
	}
}

func TestReadOncePromptSplitAcrossReads(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{})
	stream.emit(t, "out$")

	ev, prompt, err := s.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce: %v", err)
	}
	if prompt || ev == nil || ev.Data != "out" {
		t.Fatalf("first read = (%+v, %v), want (out, false)", ev, prompt)
	}

	stream.emit(t, " ")
	ev, prompt, err = s.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce: %v", err)
	}
	if !prompt || ev != nil {
		t.Fatalf("second read = (%+v, %v), want (nil, true)", ev, prompt)
	}
}

func TestReadOnceReleasesHeldTextWhenQuiet(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{PollInterval: 20 * time.Millisecond})
	stream.emit(t, "cost: 5$")

	ev, _, err := s.ReadOnce()
	if err != nil || ev == nil || ev.Data != "cost: 5" {
		t.Fatalf("first read = (%+v, %v)", ev, err)
	}
	ev, prompt, err := s.ReadOnce()
	if err != nil || prompt || ev == nil || ev.Data != "$" {
		t.Fatalf("quiet read = (%+v, %v, %v), want ($, false)", ev, prompt, err)
	}
}

func TestReadOnceJoinsSplitRune(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{})
	stream.emit(t, "\xc3")

	ev, prompt, err := s.ReadOnce()
	if err != nil || ev != nil || prompt {
		t.Fatalf("partial rune read = (%+v, %v, %v), want nothing", ev, prompt, err)
	}

	stream.emit(t, "\xa9$ ")
	ev, prompt, err = s.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce: %v", err)
	}
	if !prompt || ev == nil || ev.Data != "é" {
		t.Fatalf("read = (%+v, %v), want (é, true)", ev, prompt)
	}
}

func TestReadOnceRejectsInvalidUTF8(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{})
	stream.emit(t, "\xff\xfe ok")

	if _, _, err := s.ReadOnce(); !errors.Is(err, ErrEncoding) {
		t.Fatalf("err = %v, want ErrEncoding", err)
	}
}

func TestReadOnceStreamClosed(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{})
	stream.w.Close()

	if _, _, err := s.ReadOnce(); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("err = %v, want ErrStreamClosed", err)
	}
	if _, _, err := s.ReadOnce(); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("second err = %v, want ErrStreamClosed", err)
	}
}

func TestReadUntilPromptStampsDeltas(t *testing.T) {
	fake := clock.Fake(time.Unix(1000, 0))
	s, stream, _ := newTestSession(t, Options{Clock: fake})

	s.ResetClock()
	fake.Advance(150 * time.Millisecond)
	stream.emit(t, "hi\r\n$ ")

	events, err := s.ReadUntilPrompt()
	if err != nil {
		t.Fatalf("ReadUntilPrompt: %v", err)
	}
	want := []asciicast.Event{asciicast.Output(150*time.Millisecond, "hi\r\n")}
	if len(events) != 1 || events[0] != want[0] {
		t.Fatalf("events = %+v, want %+v", events, want)
	}

	fake.Advance(5 * time.Millisecond)
	if ev := s.NewEvent("$ "); ev.Time != 5*time.Millisecond {
		t.Fatalf("prompt event time = %v, want 5ms", ev.Time)
	}
}

func TestReadUntilPromptTimeout(t *testing.T) {
	s, _, _ := newTestSession(t, Options{Timeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	if _, err := s.ReadUntilPrompt(); !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("err = %v, want ErrReadTimeout", err)
	}
}

func TestSendAndSendLine(t *testing.T) {
	s, stream, _ := newTestSession(t, Options{})
	if err := s.Send([]byte{0x03}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.SendLine("ls"); err != nil {
		t.Fatalf("SendLine: %v", err)
	}
	if got := stream.written(); got != "\x03ls\n" {
		t.Fatalf("written = %q", got)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	s, _, _ := newTestSession(t, Options{})
	s.Close()
	if err := s.SendLine("ls"); !errors.Is(err, ErrWrite) {
		t.Fatalf("err = %v, want ErrWrite", err)
	}
	// Second close must not panic.
	s.Close()
}

func TestQuitSendsCommandAndWaits(t *testing.T) {
	quit := "exit"
	s, stream, proc := newTestSession(t, Options{QuitCommand: &quit})
	close(proc.exited)

	if err := s.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if got := stream.written(); got != "exit\n" {
		t.Fatalf("written = %q, want exit", got)
	}
}

func TestQuitTimeoutKillsProcess(t *testing.T) {
	s, _, proc := newTestSession(t, Options{Timeout: 10 * time.Millisecond})
	if err := s.Quit(); !errors.Is(err, ErrQuitTimeout) {
		t.Fatalf("err = %v, want ErrQuitTimeout", err)
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if !proc.killed {
		t.Fatal("process was not killed")
	}
}

func TestPartialSuffix(t *testing.T) {
	tests := []struct {
		text, prompt string
		want         int
	}{
		{"abc", "$ ", 0},
		{"abc$", "$ ", 1},
		{"abcSCRIPT", "SCRIPTCAST_PROMPT", 6},
		{"$ ", "$ ", 0},
		{"x$", "$ ", 1},
		{"out\r\n>>", ">>> ", 2},
		{"", "$ ", 0},
		{"x", "", 0},
	}
	for _, tt := range tests {
		if got := partialSuffix(tt.text, tt.prompt); got != tt.want {
			t.Errorf("partialSuffix(%q, %q) = %d, want %d", tt.text, tt.prompt, got, tt.want)
		}
	}
}

func TestSplitValidUTF8(t *testing.T) {
	text, rest, err := splitValidUTF8([]byte("ok\xe2\x82"))
	if err != nil || text != "ok" || string(rest) != "\xe2\x82" {
		t.Fatalf("split = (%q, %q, %v)", text, rest, err)
	}
	if _, _, err := splitValidUTF8([]byte("a\x80b")); !errors.Is(err, ErrEncoding) {
		t.Fatalf("err = %v, want ErrEncoding", err)
	}
}
