package pty

import (
	"os"
	"strings"
	"testing"

	"github.com/user/scriptcast/internal/script"
)

func TestBashProfileRemovesRCFile(t *testing.T) {
	p, err := NewProfile(script.Bash())
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	args := p.Command.Args
	if len(args) != 4 || args[1] != "--rcfile" {
		t.Fatalf("args = %v", args)
	}
	rc := args[2]
	data, err := os.ReadFile(rc)
	if err != nil {
		t.Fatalf("read rc file: %v", err)
	}
	if !strings.Contains(string(data), "PS1='"+BashPrompt+"'") {
		t.Fatalf("rc file does not set PS1:\n%s", data)
	}
	if p.Command.Prompt != BashPrompt || p.Command.QuitCommand == nil || *p.Command.QuitCommand != "exit" {
		t.Fatalf("command = %+v", p.Command)
	}

	p.Close()
	if _, err := os.Stat(rc); !os.IsNotExist(err) {
		t.Fatalf("rc file still present after Close: %v", err)
	}
	p.Close()
}

func TestPythonProfile(t *testing.T) {
	p, err := NewProfile(script.Python())
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	defer p.Close()
	if p.Command.Prompt != ">>> " || *p.Command.QuitCommand != "exit()" {
		t.Fatalf("command = %+v", p.Command)
	}
}

func TestCustomProfile(t *testing.T) {
	quit := "bye"
	sh := script.Shell{
		Kind:        script.ShellCustom,
		Program:     "zsh",
		Args:        []string{"-f"},
		Prompt:      "% ",
		LineSplit:   " \\",
		QuitCommand: &quit,
		Echo:        script.EchoOn,
	}
	p, err := NewProfile(sh)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	defer p.Close()
	c := p.Command
	if c.Program != "zsh" || c.Prompt != "% " || c.QuitCommand != &quit || c.Echo != script.EchoOn {
		t.Fatalf("command = %+v", c)
	}
}
