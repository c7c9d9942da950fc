//go:build linux || darwin

package pty

import (
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/user/scriptcast/internal/script"
)

func TestBashSessionIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns bash")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not installed")
	}

	s, err := SpawnShell(script.Bash(), nil, Size{Width: 80, Height: 24}, 5*time.Second, Options{})
	if err != nil {
		t.Fatalf("SpawnShell: %v", err)
	}
	defer s.Close()

	s.ResetClock()
	if err := s.SendLine("echo test && sleep 0.01"); err != nil {
		t.Fatalf("SendLine: %v", err)
	}
	events, err := s.ReadUntilPrompt()
	if err != nil {
		t.Fatalf("ReadUntilPrompt: %v", err)
	}

	var out strings.Builder
	for _, ev := range events {
		if ev.Time < 0 {
			t.Fatalf("negative delta: %+v", ev)
		}
		out.WriteString(ev.Data)
	}
	if out.String() != "test\r\n" {
		t.Fatalf("output = %q, want %q", out.String(), "test\r\n")
	}

	if err := s.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
}
