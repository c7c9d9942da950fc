// Package ansi turns captured terminal output into plain text.
package ansi

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Order matters: string sequences are removed before the catch-all
// two-byte escape.
var sequences = []*regexp.Regexp{
	regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`),       // CSI
	regexp.MustCompile(`(?s)\x1b\].*?(?:\x07|\x1b\\)`), // OSC
	regexp.MustCompile(`(?s)\x1bP.*?\x1b\\`),           // DCS
	regexp.MustCompile(`(?s)\x1b\^.*?\x1b\\`),          // PM
	regexp.MustCompile(`(?s)\x1b_.*?\x1b\\`),           // APC
	regexp.MustCompile(`(?s)\x1bk.*?\x1b\\`),           // screen title
	regexp.MustCompile(`\x1b[()][0-9A-Za-z]`),          // charset
	regexp.MustCompile(`\x1b[=>]`),                     // keypad mode
	regexp.MustCompile(`\x1b.`),
}

// Strip removes escape sequences and control bytes. Backspace erases the
// preceding rune; line feeds and tabs are kept.
func Strip(s string) string {
	for _, re := range sequences {
		s = re.ReplaceAllString(s, "")
	}

	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\r' {
			continue
		}
		if ch == '\b' {
			if len(result) > 0 {
				_, size := utf8.DecodeLastRune(result)
				result = result[:len(result)-size]
			}
			continue
		}
		if (ch < 0x20 || ch == 0x7f) && ch != '\n' && ch != '\t' {
			continue
		}
		result = append(result, ch)
	}
	return string(result)
}

// Preview returns the first non-blank line of the stripped text, cut to at
// most max runes.
func Preview(s string, max int) string {
	for line := range strings.SplitSeq(Strip(s), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if max > 0 && utf8.RuneCountInString(line) > max {
			runes := []rune(line)
			return string(runes[:max-1]) + "…"
		}
		return line
	}
	return ""
}
