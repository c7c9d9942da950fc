package script

import (
	"fmt"
	"unicode/utf8"
)

// ControlCode is a C0 control byte (0x00-0x1F) or DEL (0x7F).
type ControlCode byte

// ParseControlCode maps the character written after a caret, as in "^C", to
// its control code. Letters are case-insensitive; '?' is DEL.
func ParseControlCode(s string) (ControlCode, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, fmt.Errorf("%w: %q is not a single control char", ErrInvalidControlCode, s)
	}
	return ControlCodeFromRune(r)
}

func ControlCodeFromRune(r rune) (ControlCode, error) {
	switch {
	case r == '?':
		return 0x7f, nil
	case r >= 'a' && r <= 'z':
		return ControlCode(r - 'a' + 1), nil
	case r >= '@' && r <= '_':
		return ControlCode(r - '@'), nil
	default:
		return 0, fmt.Errorf("%w: %q is not a valid control char", ErrInvalidControlCode, r)
	}
}

// Byte is the raw byte sent to the terminal.
func (c ControlCode) Byte() byte { return byte(c) }

// Caret renders the two-character caret notation, e.g. "^C".
func (c ControlCode) Caret() string {
	if c == 0x7f {
		return "^?"
	}
	return string([]byte{'^', byte(c) + '@'})
}

func (c ControlCode) String() string { return c.Caret() }
