package main

import (
	"io"
	"strings"

	"github.com/user/scriptcast/internal/ansi"
	"github.com/user/scriptcast/internal/asciicast"
)

func runCat(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("cat", stderr)
	plain := fs.Bool("plain", false, "strip escape sequences and control characters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("cat expects exactly one recording, got %d arguments", fs.NArg())
	}

	rec, err := asciicast.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	out := outputText(rec)
	if *plain {
		out = ansi.Strip(out)
	}
	_, err = io.WriteString(stdout, out)
	return err
}

// outputText concatenates the data of every output event in order.
func outputText(rec *asciicast.Recording) string {
	var b strings.Builder
	for _, ev := range rec.Events {
		if ev.Kind == asciicast.KindOutput {
			b.WriteString(ev.Data)
		}
	}
	return b.String()
}
