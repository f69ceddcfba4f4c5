package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mission-control/mdc/internal/message"
)

func TestRecordAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	first, _ := message.NewCommand(message.AbortMission, message.ComponentGround, message.ComponentFlight, nil)
	second, _ := message.NewCommand(message.SendStatus, message.ComponentFlight, message.ComponentGround, nil)
	l.Record(first, OutcomeSuccess, 8*time.Millisecond, "")
	l.Record(second, OutcomeFailed, 2*time.Second, "transmitter offline")

	f, err := os.Open(filepath.Join(dir, "dispatch.jsonl"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if entries[0].Command != "abortMission" || entries[0].Outcome != OutcomeSuccess {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[0].LatencyUs != 8000 {
		t.Errorf("LatencyUs = %d, want 8000", entries[0].LatencyUs)
	}
	if entries[1].Outcome != OutcomeFailed || entries[1].Detail == "" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestNewLoggerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()
	if _, err := os.Stat(filepath.Join(dir, "dispatch.jsonl")); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}
