// Package audit keeps the append-only dispatch record: one JSON line per
// dispatched command with its outcome and measured latency.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mission-control/mdc/internal/message"
)

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	MessageID uint64    `json:"messageId"`
	Command   string    `json:"command"`
	Priority  string    `json:"priority"`
	Source    uint16    `json:"source"`
	Outcome   string    `json:"outcome"`
	LatencyUs int64     `json:"latencyUs"`
	Detail    string    `json:"detail,omitempty"`
}

// Dispatch outcomes.
const (
	OutcomeSuccess  = "SUCCESS"
	OutcomeFailed   = "FAILED"
	OutcomeRejected = "REJECTED"
	OutcomeDropped  = "DROPPED"
)

// Logger appends entries to dispatch.jsonl under the audit directory.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger opens (creating if needed) the audit log for appending.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	path := filepath.Join(dir, "dispatch.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &Logger{file: file}, nil
}

// Record writes one dispatch record. Audit failures are reported to stderr
// but never propagate; a full disk must not stop command dispatch.
func (l *Logger) Record(msg *message.Message, outcome string, latency time.Duration, detail string) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		MessageID: msg.ID,
		Command:   msg.Payload.Command.String(),
		Priority:  msg.Priority.String(),
		Source:    uint16(msg.Source),
		Outcome:   outcome,
		LatencyUs: latency.Microseconds(),
		Detail:    detail,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: marshal entry: %v\n", err)
		return
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "audit: write entry: %v\n", err)
		return
	}
	if err := l.file.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "audit: sync: %v\n", err)
	}
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
