package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogger_FiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(LevelWarn, &buf)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("skipping %s", "2023-01-08")
	l.Error("boom")

	got := buf.String()
	want := "2024-03-01 09:30:00 [WARN] skipping 2023-01-08\n2024-03-01 09:30:00 [ERROR] boom\n"
	if got != want {
		t.Fatalf("output=%q, want %q", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo, "Warning": LevelWarn, "error": LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("LOUD"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOpen_AppendsToFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "log", "diary.log")
	l, err := Open(LevelError, p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l.Error("first")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	l.Error("after close is dropped")

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "[ERROR] first") || strings.Contains(string(b), "after close") {
		t.Fatalf("log file=%q", string(b))
	}
}

func TestDiscard_IsSilent(t *testing.T) {
	t.Parallel()

	l := Discard()
	if l.Enabled(LevelError) {
		t.Fatalf("Discard logger should not enable any level")
	}
	l.Error("nothing")
}
