package asciicast

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"
)

var ErrTimestampBeforeEpoch = errors.New("timestamp is before unix epoch")

// Writer emits a recording line by line. The header must be written first and
// exactly once. Separators are ", " and ": " and floats carry six decimals so
// the output matches files produced by `asciinema rec`.
type Writer struct {
	w             *bufio.Writer
	buf           []byte
	headerWritten bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteHeader(h Header) error {
	if w.headerWritten {
		return errors.New("asciicast: header already written")
	}
	line, err := AppendHeader(w.buf[:0], h)
	if err != nil {
		return err
	}
	w.buf = line
	if err := w.writeLine(line); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

func (w *Writer) WriteEvent(ev Event) error {
	if !w.headerWritten {
		return errors.New("asciicast: event written before header")
	}
	w.buf = AppendEvent(w.buf[:0], ev)
	return w.writeLine(w.buf)
}

func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush recording: %w", err)
	}
	return nil
}

func (w *Writer) writeLine(line []byte) error {
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("write recording line: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write recording line: %w", err)
	}
	return nil
}

// WriteTo writes the header and every event, then flushes.
func (r *Recording) WriteTo(dst io.Writer) (int64, error) {
	cw := &countingWriter{w: dst}
	w := NewWriter(cw)
	if err := w.WriteHeader(r.Header); err != nil {
		return cw.n, err
	}
	for _, ev := range r.Events {
		if err := w.WriteEvent(ev); err != nil {
			return cw.n, err
		}
	}
	err := w.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// AppendHeader encodes h as a JSON object in the fixed field order version,
// width, height, timestamp, duration, idle_time_limit, command, title, env.
func AppendHeader(dst []byte, h Header) ([]byte, error) {
	dst = append(dst, `{"version": `...)
	dst = strconv.AppendInt(dst, Version, 10)
	dst = append(dst, `, "width": `...)
	dst = strconv.AppendUint(dst, uint64(h.Width), 10)
	dst = append(dst, `, "height": `...)
	dst = strconv.AppendUint(dst, uint64(h.Height), 10)
	if !h.Timestamp.IsZero() {
		secs := h.Timestamp.Unix()
		if secs < 0 {
			return dst, ErrTimestampBeforeEpoch
		}
		dst = append(dst, `, "timestamp": `...)
		dst = strconv.AppendInt(dst, secs, 10)
	}
	if h.Duration != nil {
		dst = append(dst, `, "duration": `...)
		dst = appendSeconds(dst, *h.Duration)
	}
	if h.IdleTimeLimit != nil {
		dst = append(dst, `, "idle_time_limit": `...)
		dst = strconv.AppendFloat(dst, *h.IdleTimeLimit, 'f', 6, 64)
	}
	if h.Command != "" {
		dst = append(dst, `, "command": `...)
		dst = appendString(dst, h.Command)
	}
	if h.Title != "" {
		dst = append(dst, `, "title": `...)
		dst = appendString(dst, h.Title)
	}
	if len(h.Env) > 0 {
		keys := make([]string, 0, len(h.Env))
		for k := range h.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dst = append(dst, `, "env": {`...)
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = appendString(dst, k)
			dst = append(dst, ": "...)
			dst = appendString(dst, h.Env[k])
		}
		dst = append(dst, '}')
	}
	return append(dst, '}'), nil
}

// AppendEvent encodes ev as `[time, "kind", "data"]`.
func AppendEvent(dst []byte, ev Event) []byte {
	dst = append(dst, '[')
	dst = appendSeconds(dst, ev.Time)
	dst = append(dst, `, "`...)
	dst = append(dst, byte(ev.Kind))
	dst = append(dst, `", `...)
	dst = appendString(dst, ev.Data)
	return append(dst, ']')
}

func appendSeconds(dst []byte, d time.Duration) []byte {
	return strconv.AppendFloat(dst, d.Seconds(), 'f', 6, 64)
}

const hexDigits = "0123456789abcdef"

// appendString escapes only '"', '\\' and C0 control characters. Everything
// else, including '<', '>' and '&', is written verbatim.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				dst = append(dst, s[start:i]...)
				dst = append(dst, "�"...)
				i += size
				start = i
				continue
			}
			i += size
			continue
		}
		if c >= 0x20 && c != '"' && c != '\\' {
			i++
			continue
		}
		dst = append(dst, s[start:i]...)
		switch c {
		case '"':
			dst = append(dst, `\"`...)
		case '\\':
			dst = append(dst, `\\`...)
		case '\b':
			dst = append(dst, `\b`...)
		case '\f':
			dst = append(dst, `\f`...)
		case '\n':
			dst = append(dst, `\n`...)
		case '\r':
			dst = append(dst, `\r`...)
		case '\t':
			dst = append(dst, `\t`...)
		default:
			dst = append(dst, `\u00`...)
			dst = append(dst, hexDigits[c>>4], hexDigits[c&0xf])
		}
		i++
		start = i
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
