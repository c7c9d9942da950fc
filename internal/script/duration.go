package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseDuration parses an integer followed by one of the units s, ms or us,
// e.g. "1s", "150ms" or "900us".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return 0, fmt.Errorf("%w: %q cannot contain whitespace", ErrInvalidDuration, s)
	}

	var (
		digits string
		unit   time.Duration
	)
	switch {
	case strings.HasSuffix(s, "ms"):
		digits, unit = strings.TrimSuffix(s, "ms"), time.Millisecond
	case strings.HasSuffix(s, "us"):
		digits, unit = strings.TrimSuffix(s, "us"), time.Microsecond
	case strings.HasSuffix(s, "s"):
		digits, unit = strings.TrimSuffix(s, "s"), time.Second
	default:
		return 0, fmt.Errorf("%w: %q has an unknown unit, must be: s, ms, or us", ErrInvalidDuration, s)
	}

	n, err := strconv.ParseUint(digits, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q could not be parsed as an integer", ErrInvalidDuration, s)
	}
	if n > uint64(1<<63-1)/uint64(unit) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidDuration, s)
	}
	return time.Duration(n) * unit, nil
}

// FormatDuration renders d in the largest unit of ParseDuration that
// represents it exactly.
func FormatDuration(d time.Duration) string {
	switch {
	case d%time.Second == 0:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	case d%time.Millisecond == 0:
		return strconv.FormatInt(int64(d/time.Millisecond), 10) + "ms"
	default:
		return strconv.FormatInt(int64(d/time.Microsecond), 10) + "us"
	}
}
