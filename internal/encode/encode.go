// Package encode turns commands and keys into the bytes written to a session
// and into the synthetic keystroke events that show them being typed.
package encode

import (
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/script"
)

// Sender is the write side of a session.
type Sender interface {
	Send(data []byte) error
	SendLine(text string) error
}

// Typed yields one output event per typed character, each typeSpeed after the
// previous one. Every typed line ends with a line break event. Lines after the
// first of a multi-line command are preceded by the secondary prompt, and all
// but the last line end with lineSplit.
func Typed(cmd script.Command, typeSpeed time.Duration, secondaryPrompt, lineSplit string) iter.Seq[asciicast.Event] {
	return func(yield func(asciicast.Event) bool) {
		switch c := cmd.(type) {
		case script.SingleLine:
			typeLine(yield, typeSpeed, c.Text)
		case script.MultiLine:
			for i, line := range c.Lines {
				if i > 0 && !yield(asciicast.Output(typeSpeed, secondaryPrompt)) {
					return
				}
				if i+1 < len(c.Lines) {
					line += lineSplit
				}
				if !typeLine(yield, typeSpeed, line) {
					return
				}
			}
		case script.ControlCommand:
			typeLine(yield, typeSpeed, c.Code.Caret())
		}
	}
}

func typeLine(yield func(asciicast.Event) bool, typeSpeed time.Duration, line string) bool {
	for _, r := range line {
		if !yield(asciicast.Output(typeSpeed, string(r))) {
			return false
		}
	}
	return yield(asciicast.Outputln(typeSpeed))
}

// SendCommand writes cmd to the session. Multi-line commands are joined with
// single spaces and sent as one line; control commands send the raw byte.
func SendCommand(s Sender, cmd script.Command) error {
	switch c := cmd.(type) {
	case script.SingleLine:
		return s.SendLine(c.Text)
	case script.MultiLine:
		return s.SendLine(strings.Join(c.Lines, " "))
	case script.ControlCommand:
		return s.Send([]byte{c.Code.Byte()})
	default:
		return nil
	}
}

// KeyBytes returns what pressing key writes to the session. Waits write
// nothing.
func KeyBytes(key script.Key) []byte {
	switch k := key.(type) {
	case script.KeyChar:
		return utf8.AppendRune(nil, k.Char)
	case script.KeyString:
		return []byte(k.Text)
	case script.KeyControl:
		return []byte{k.Code.Byte()}
	default:
		return nil
	}
}

// SendKey presses key. A string key is sent one character at a time.
func SendKey(s Sender, key script.Key) error {
	if str, ok := key.(script.KeyString); ok {
		for _, r := range str.Text {
			if err := s.Send(utf8.AppendRune(nil, r)); err != nil {
				return err
			}
		}
		return nil
	}
	if data := KeyBytes(key); len(data) > 0 {
		return s.Send(data)
	}
	return nil
}

// KeyDelay is the extra time a key holds the typing schedule back.
func KeyDelay(key script.Key) time.Duration {
	if w, ok := key.(script.KeyWait); ok {
		return w.Duration
	}
	return 0
}
