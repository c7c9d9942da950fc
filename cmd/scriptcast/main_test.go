package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/scriptcast/internal/asciicast"
	"github.com/user/scriptcast/internal/db"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeCast(t *testing.T, path string) {
	t.Helper()
	rec := &asciicast.Recording{
		Header: asciicast.Header{Width: 80, Height: 24, Timestamp: time.Unix(1700000000, 0)},
		Events: []asciicast.Event{
			asciicast.Output(0, "$ "),
			asciicast.Input(100*time.Millisecond, "ls"),
			asciicast.Output(100*time.Millisecond, "l"),
			asciicast.Output(100*time.Millisecond, "s"),
			asciicast.Outputln(100 * time.Millisecond),
			asciicast.Marker(0, "listing"),
			asciicast.Output(10*time.Millisecond, "\x1b[34mdir\x1b[0m\r\n"),
		},
	}
	if err := asciicast.WriteFile(path, rec, false); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr, "scriptcast record") {
		t.Fatalf("stderr = %q, want usage", stderr)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "bogus")
	if code != 2 || !strings.Contains(stderr, `unknown command "bogus"`) {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
}

func TestCatPrintsOutputEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.cast")
	writeCast(t, path)

	code, stdout, stderr := runCLI(t, "cat", path)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	if stdout != "$ ls\r\n\x1b[34mdir\x1b[0m\r\n" {
		t.Fatalf("stdout = %q", stdout)
	}

	code, stdout, _ = runCLI(t, "cat", "--plain", path)
	if code != 0 {
		t.Fatalf("plain exit=%d", code)
	}
	if stdout != "$ ls\ndir\n" {
		t.Fatalf("plain stdout = %q", stdout)
	}
}

func TestCatReadsCompressedRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.cast.zst")
	writeCast(t, path)

	code, stdout, stderr := runCLI(t, "cat", "--plain", path)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	if stdout != "$ ls\ndir\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestCatMissingFile(t *testing.T) {
	code, _, stderr := runCLI(t, "cat", filepath.Join(t.TempDir(), "nope.cast"))
	if code != 1 || !strings.Contains(stderr, "error:") {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
}

func TestRecordArgumentErrors(t *testing.T) {
	code, _, _ := runCLI(t, "record", "only-one.yaml")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "exists.cast")
	if err := os.WriteFile(out, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runCLI(t, "record", filepath.Join(dir, "script.yaml"), out)
	if code != 1 || !strings.Contains(stderr, "already exists") {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "keep" {
		t.Fatalf("existing output modified: %q", data)
	}
}

func TestRecordRejectsInvalidScript(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "script.yaml")
	if err := os.WriteFile(scriptPath, []byte("settings: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.cast")
	code, _, stderr := runCLI(t, "record", scriptPath, out)
	if code != 1 || !strings.Contains(stderr, "instructions") {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output written for invalid script: %v", err)
	}
}

func TestRecordMissingScript(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, "record", filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "out.cast"))
	if code != 1 || !strings.Contains(stderr, "open script") {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
}

func TestHistoryListsCatalog(t *testing.T) {
	dir := t.TempDir()
	castPath := filepath.Join(dir, "untitled.cast")
	writeCast(t, castPath)

	catalog := filepath.Join(dir, "catalog.db")
	database, err := db.Open(context.Background(), catalog)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	repo := db.NewRecordingRepo(database.SQL())
	for _, rec := range []*db.Recording{
		{ID: "aaaaaaaa-1111", ScriptPath: "a.yaml", OutputPath: "titled.cast", Title: "Titled", Width: 80, Height: 24, DurationMS: 1500, EventCount: 7, Status: db.StatusCompleted},
		{ID: "bbbbbbbb-2222", ScriptPath: "b.yaml", OutputPath: castPath, Width: 80, Height: 24, Status: db.StatusCompleted},
	} {
		if err := repo.Create(context.Background(), rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := database.Close(); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI(t, "history", "--catalog", catalog)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	for _, want := range []string{"STATUS", "aaaaaaaa", "bbbbbbbb", "Titled", "1.5s", "80x24", "$ ls"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("history output missing %q:\n%s", want, stdout)
		}
	}
}

func TestHistoryRequiresCatalog(t *testing.T) {
	code, _, stderr := runCLI(t, "history")
	if code != 2 || !strings.Contains(stderr, "no catalog configured") {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
}
