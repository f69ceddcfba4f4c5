package fault

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/timing"
)

type mockSink struct {
	events []Event
}

func (m *mockSink) RecordFault(e Event) { m.events = append(m.events, e) }

func (m *mockSink) countKind(k Kind) int {
	n := 0
	for _, e := range m.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func newTestManager() (*Manager, *mockSink) {
	sink := &mockSink{}
	return NewManager(sink, time.Second, zap.NewNop()), sink
}

func TestUnknownFaultKindDefaultsToSafeMode(t *testing.T) {
	m, sink := newTestManager()

	action := m.Handle(Fault{Kind: Kind("meteorStrike"), Detail: "unclassified"})
	if action.Kind != ActionSafeMode {
		t.Fatalf("action = %s, want safeMode for unknown kinds", action.Kind)
	}
	if m.Mode() != Safe {
		t.Fatalf("mode = %s, want SAFE", m.Mode())
	}
	if sink.countKind(KindModeChange) != 1 {
		t.Fatalf("mode change events = %d, want 1", sink.countKind(KindModeChange))
	}
}

func TestPolicyTableActions(t *testing.T) {
	m, _ := newTestManager()

	action := m.Handle(Fault{Kind: KindHardwareFailure, Component: message.ComponentComms})
	if action.Kind != ActionRestartComponent {
		t.Errorf("hardware failure action = %s, want restartComponent", action.Kind)
	}
	action = m.Handle(Fault{Kind: KindCommLoss})
	if action.Kind != ActionFailover || action.Backup == "" {
		t.Errorf("comm loss action = %s backup %q, want failover with a backup", action.Kind, action.Backup)
	}
	// Neither action touches the mode.
	if m.Mode() != Nominal {
		t.Fatalf("mode = %s, want NOMINAL", m.Mode())
	}
}

func rtSample() timing.Sample {
	return timing.Sample{
		Command:  message.AbortMission,
		Priority: message.Critical,
		Elapsed:  15 * time.Millisecond,
		Contract: 10 * time.Millisecond,
		Violated: true,
	}
}

func TestSustainedViolationsEscalateToSafeMode(t *testing.T) {
	m, _ := newTestManager()

	m.NotifyViolation(rtSample())
	m.NotifyViolation(rtSample())
	if m.Mode() != Nominal {
		t.Fatalf("mode = %s after 2 violations, want NOMINAL", m.Mode())
	}

	m.NotifyViolation(rtSample())
	if m.Mode() != Safe {
		t.Fatalf("mode = %s after 3 violations, want SAFE", m.Mode())
	}
	if floor := m.MinDispatchPriority(); floor != message.Critical {
		t.Fatalf("admission floor = %s, want CRITICAL", floor)
	}
}

func TestHealthyExecutionResetsStreak(t *testing.T) {
	m, _ := newTestManager()

	m.NotifyViolation(rtSample())
	m.NotifyViolation(rtSample())
	m.NoteHealthy()
	m.NotifyViolation(rtSample())
	m.NotifyViolation(rtSample())
	if m.Mode() != Nominal {
		t.Fatalf("mode = %s, want NOMINAL after streak reset", m.Mode())
	}
}

func TestWatchdogExpiryForcesSafeModeOnce(t *testing.T) {
	sink := &mockSink{}
	m := NewManager(sink, 10*time.Millisecond, zap.NewNop())

	m.mu.Lock()
	m.lastFeed = time.Now().Add(-50 * time.Millisecond)
	m.mu.Unlock()

	m.checkWatchdog()
	if m.Mode() != Safe {
		t.Fatalf("mode = %s, want SAFE after expiry", m.Mode())
	}
	if got := sink.countKind(KindWatchdogTimeout); got != 1 {
		t.Fatalf("watchdog events = %d, want 1", got)
	}

	// Expiry already tripped: repeated checks stay quiet until the next feed.
	m.checkWatchdog()
	m.checkWatchdog()
	if got := sink.countKind(KindWatchdogTimeout); got != 1 {
		t.Fatalf("watchdog events = %d after repeat checks, want 1", got)
	}
	if got := sink.countKind(KindModeChange); got != 1 {
		t.Fatalf("mode changes = %d, want 1", got)
	}
}

func TestWatchdogRearmsAfterFeed(t *testing.T) {
	sink := &mockSink{}
	m := NewManager(sink, 10*time.Millisecond, zap.NewNop())

	m.mu.Lock()
	m.lastFeed = time.Now().Add(-50 * time.Millisecond)
	m.mu.Unlock()
	m.checkWatchdog()

	m.Feed()
	m.Recover("ground reset")

	m.mu.Lock()
	m.lastFeed = time.Now().Add(-50 * time.Millisecond)
	m.mu.Unlock()
	m.checkWatchdog()

	if got := sink.countKind(KindWatchdogTimeout); got != 2 {
		t.Fatalf("watchdog events = %d, want 2 across two armed expiries", got)
	}
}

func TestEmergencyOutranksSafe(t *testing.T) {
	m, _ := newTestManager()

	m.EnterEmergency("emergency abort commanded")
	if m.Mode() != Emergency {
		t.Fatalf("mode = %s, want EMERGENCY", m.Mode())
	}
	m.EnterSafe("late watchdog")
	if m.Mode() != Emergency {
		t.Fatalf("mode = %s, safe must not demote emergency", m.Mode())
	}
	if floor := m.MinDispatchPriority(); floor != message.Emergency {
		t.Fatalf("admission floor = %s, want EMERGENCY", floor)
	}
}

func TestRecoverReturnsToNominal(t *testing.T) {
	m, _ := newTestManager()

	m.EnterSafe("operator test")
	m.Recover("fault cleared")
	if m.Mode() != Nominal {
		t.Fatalf("mode = %s, want NOMINAL", m.Mode())
	}
	if floor := m.MinDispatchPriority(); floor != message.Low {
		t.Fatalf("admission floor = %s, want LOW", floor)
	}
}
