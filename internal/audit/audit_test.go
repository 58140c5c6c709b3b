package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendCreatesDirAndWritesLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "escalations.log")
	log := NewLog(path)

	entry := Entry{
		Timestamp:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Fingerprint: "deadbeef",
		Actor:       "operator",
		Message:     "urgent intervention needed",
	}
	if err := log.Append(entry); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(entry); err != nil {
		t.Fatalf("second append: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two appended lines, got %d", len(lines))
	}
	want := "2026-08-30T10:00:00Z|deadbeef|operator|urgent intervention needed"
	if lines[0] != want {
		t.Fatalf("unexpected audit line %q, want %q", lines[0], want)
	}
}

func TestAppendFailureSurfaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A directory at the log path makes the open fail.
	if err := os.Mkdir(filepath.Join(dir, "escalations.log"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	log := NewLog(filepath.Join(dir, "escalations.log"))
	if err := log.Append(Entry{Timestamp: time.Now()}); err == nil {
		t.Fatalf("expected append error")
	}
}
