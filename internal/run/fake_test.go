package run

import (
	"errors"
	"strings"
	"time"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/clock"
)

var errNoPrompt = errors.New("fake shell: prompt never arrived")

// fakeShell is a scripted terminal session. Every read advances the fake
// clock by latency and yields the next queued chunk; promptChunk in the queue
// stands for the shell printing its prompt.
type fakeShell struct {
	clock   *clock.FakeClock
	cursor  *clock.Cursor
	latency time.Duration

	cwd   string
	lines []string
	keys  []string
	queue []string

	// onKey, when set, decides what a key press prints.
	onKey func(key string) []string
}

const promptChunk = "\x00prompt"

func newFakeShell() *fakeShell {
	c := clock.Fake(time.Unix(1_700_000_000, 0))
	return &fakeShell{clock: c, cursor: clock.NewCursor(c), latency: 5 * time.Millisecond, cwd: "/home"}
}

func (f *fakeShell) SendLine(text string) error {
	f.lines = append(f.lines, text)
	switch {
	case strings.HasPrefix(text, "cd "):
		f.cwd = strings.TrimPrefix(text, "cd ")
		f.queue = append(f.queue, promptChunk)
	case text == "pwd":
		f.queue = append(f.queue, f.cwd+"\r\n", promptChunk)
	case strings.HasPrefix(text, "echo "):
		f.queue = append(f.queue, strings.TrimPrefix(text, "echo ")+"\r\n", promptChunk)
	case text == "cat":
		// waits for keys
	case text == "hang":
		// never prints a prompt
	default:
		f.queue = append(f.queue, promptChunk)
	}
	return nil
}

func (f *fakeShell) Send(data []byte) error {
	key := string(data)
	f.keys = append(f.keys, key)
	if f.onKey != nil {
		f.queue = append(f.queue, f.onKey(key)...)
	}
	return nil
}

func (f *fakeShell) ReadOnce() (*asciicast.Event, bool, error) {
	f.clock.Advance(f.latency)
	if len(f.queue) == 0 {
		return nil, false, nil
	}
	chunk := f.queue[0]
	f.queue = f.queue[1:]
	if chunk == promptChunk {
		return nil, true, nil
	}
	ev := f.NewEvent(chunk)
	return &ev, false, nil
}

func (f *fakeShell) ReadUntilPrompt() ([]asciicast.Event, error) {
	var events []asciicast.Event
	for range 100 {
		ev, prompt, err := f.ReadOnce()
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if prompt {
			return events, nil
		}
	}
	return nil, errNoPrompt
}

func (f *fakeShell) ResetClock() { f.cursor.Reset() }

func (f *fakeShell) NewEvent(data string) asciicast.Event {
	return asciicast.Output(f.cursor.Mark(), data)
}
