package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one escalation audit record.
// Params: event time, alert fingerprint, acting operator, free-text message.
// Returns: append-only record, never read back by the service.
type Entry struct {
	Timestamp   time.Time
	Fingerprint string
	Actor       string
	Message     string
}

// Line renders the entry in the audit wire format.
// Params: none.
// Returns: "timestamp|fingerprint|actor|message" without trailing newline.
func (e Entry) Line() string {
	return fmt.Sprintf("%s|%s|%s|%s", e.Timestamp.Format(time.RFC3339), e.Fingerprint, e.Actor, e.Message)
}

// Log appends escalation entries to one line-oriented file sink.
// Params: configured file path.
// Returns: best-effort append behavior; callers log failures locally.
type Log struct {
	path string
}

// NewLog creates the escalation audit log.
// Params: file path; parent directories are created on first append.
// Returns: initialized log handle.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append writes one entry to the audit sink.
// Params: entry to record.
// Returns: write error for local logging; entries are never silently lost.
func (l *Log) Append(entry Entry) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit dir %q: %w", dir, err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log %q: %w", l.path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(entry.Line() + "\n"); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
