package encode

import (
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/script"
)

const speed = 10 * time.Millisecond

func datas(events []asciicast.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Data
	}
	return out
}

func TestTypedSingleLine(t *testing.T) {
	events := slices.Collect(Typed(script.SingleLine{Text: "ls"}, speed, "> ", " \\"))
	want := []string{"l", "s", "\r\n"}
	if !reflect.DeepEqual(datas(events), want) {
		t.Fatalf("data = %q, want %q", datas(events), want)
	}
	for i, ev := range events {
		if ev.Time != speed || ev.Kind != asciicast.KindOutput {
			t.Fatalf("event %d = %+v, want output at %v", i, ev, speed)
		}
	}
}

func TestTypedMultiLine(t *testing.T) {
	events := slices.Collect(Typed(script.MultiLine{Lines: []string{"a", "b"}}, speed, "> ", " \\"))
	want := []string{"a", " ", "\\", "\r\n", "> ", "b", "\r\n"}
	if !reflect.DeepEqual(datas(events), want) {
		t.Fatalf("data = %q, want %q", datas(events), want)
	}
}

func TestTypedControl(t *testing.T) {
	code, _ := script.ParseControlCode("c")
	events := slices.Collect(Typed(script.ControlCommand{Code: code}, speed, "> ", " \\"))
	want := []string{"^", "C", "\r\n"}
	if !reflect.DeepEqual(datas(events), want) {
		t.Fatalf("data = %q, want %q", datas(events), want)
	}
}

func TestTypedMultiByteRunes(t *testing.T) {
	events := slices.Collect(Typed(script.SingleLine{Text: "héllo"}, speed, "", ""))
	if len(events) != 6 || events[1].Data != "é" {
		t.Fatalf("events = %q", datas(events))
	}
}

func TestTypedStopsEarly(t *testing.T) {
	n := 0
	for range Typed(script.MultiLine{Lines: []string{"abc", "def"}}, speed, "> ", "") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("consumed %d events", n)
	}
}

type recordingSender struct {
	sent  []string
	lines []string
	err   error
}

func (r *recordingSender) Send(data []byte) error {
	r.sent = append(r.sent, string(data))
	return r.err
}

func (r *recordingSender) SendLine(text string) error {
	r.lines = append(r.lines, text)
	return r.err
}

func TestSendCommand(t *testing.T) {
	s := &recordingSender{}
	if err := SendCommand(s, script.MultiLine{Lines: []string{"echo a \\", "b"}}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if err := SendCommand(s, script.SingleLine{Text: "pwd"}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if err := SendCommand(s, script.ControlCommand{Code: 0x03}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if !reflect.DeepEqual(s.lines, []string{"echo a \\ b", "pwd"}) {
		t.Fatalf("lines = %q", s.lines)
	}
	if !reflect.DeepEqual(s.sent, []string{"\x03"}) {
		t.Fatalf("sent = %q", s.sent)
	}
}

func TestSendKey(t *testing.T) {
	s := &recordingSender{}
	keys := []script.Key{
		script.KeyChar{Char: 'x'},
		script.KeyString{Text: "ab"},
		script.KeyControl{Code: 0x0d},
		script.KeyWait{Duration: time.Second},
	}
	for _, k := range keys {
		if err := SendKey(s, k); err != nil {
			t.Fatalf("SendKey(%v): %v", k, err)
		}
	}
	want := []string{"x", "a", "b", "\r"}
	if !reflect.DeepEqual(s.sent, want) {
		t.Fatalf("sent = %q, want %q", s.sent, want)
	}
}

func TestSendKeyPropagatesError(t *testing.T) {
	boom := errors.New("broken pipe")
	s := &recordingSender{err: boom}
	if err := SendKey(s, script.KeyString{Text: "abc"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d chunks after failure, want 1", len(s.sent))
	}
}

func TestKeyDelay(t *testing.T) {
	if d := KeyDelay(script.KeyWait{Duration: time.Second}); d != time.Second {
		t.Fatalf("KeyDelay(wait) = %v", d)
	}
	if d := KeyDelay(script.KeyChar{Char: 'a'}); d != 0 {
		t.Fatalf("KeyDelay(char) = %v", d)
	}
}
