package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/audit"
	"github.com/mission-control/mdc/internal/auth"
	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/fault"
	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/scheduler"
	"github.com/mission-control/mdc/internal/timing"
	"github.com/mission-control/mdc/internal/transceiver"
)

type mockMonitor struct {
	mu       sync.Mutex
	enqueued []uint64
	dequeued []uint64
	evicted  []uint64
	rejected []string
	expired  int
}

func (m *mockMonitor) RecordEnqueued(msg *message.Message, _ int) {
	m.mu.Lock()
	m.enqueued = append(m.enqueued, msg.ID)
	m.mu.Unlock()
}
func (m *mockMonitor) RecordDequeued(msg *message.Message, _ int) {
	m.mu.Lock()
	m.dequeued = append(m.dequeued, msg.ID)
	m.mu.Unlock()
}
func (m *mockMonitor) RecordEvicted(msg *message.Message) {
	m.mu.Lock()
	m.evicted = append(m.evicted, msg.ID)
	m.mu.Unlock()
}
func (m *mockMonitor) RecordRejected(reason string) {
	m.mu.Lock()
	m.rejected = append(m.rejected, reason)
	m.mu.Unlock()
}
func (m *mockMonitor) RecordExpired(dropped []*message.Message) {
	m.mu.Lock()
	m.expired += len(dropped)
	m.mu.Unlock()
}
func (m *mockMonitor) RecordBandSwitch(band.Band) {}
func (m *mockMonitor) SetQueueDepth(int)          {}

type auditRecord struct {
	id      uint64
	outcome string
	detail  string
}

type mockAudit struct {
	mu      sync.Mutex
	records []auditRecord
}

func (m *mockAudit) Record(msg *message.Message, outcome string, _ time.Duration, detail string) {
	m.mu.Lock()
	m.records = append(m.records, auditRecord{id: msg.ID, outcome: outcome, detail: detail})
	m.mu.Unlock()
}

func (m *mockAudit) outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.outcome
	}
	return out
}

type mockFaults struct {
	mu      sync.Mutex
	floor   message.Priority
	action  fault.Action
	handled []fault.Fault
	feeds   int
}

func (m *mockFaults) Mode() fault.Mode { return fault.Nominal }
func (m *mockFaults) MinDispatchPriority() message.Priority {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.floor == 0 {
		return message.Low
	}
	return m.floor
}
func (m *mockFaults) Feed() {
	m.mu.Lock()
	m.feeds++
	m.mu.Unlock()
}
func (m *mockFaults) Handle(f fault.Fault) fault.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled = append(m.handled, f)
	return m.action
}
func (m *mockFaults) NoteHealthy() {}

type harness struct {
	d        *Dispatcher
	queue    *scheduler.Queue
	verifier *auth.Verifier
	radio    *transceiver.Fake
	monitor  *mockMonitor
	audit    *mockAudit
	faults   *mockFaults
}

func newHarness(t *testing.T, queueCap int, evict bool) *harness {
	t.Helper()
	verifier, err := auth.NewVerifier([]byte("dispatch-test-secret"), time.Minute)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	radio := transceiver.NewFake()
	queue := scheduler.New(queueCap, evict)
	monitor := &mockMonitor{}
	auditLog := &mockAudit{}
	faults := &mockFaults{}
	selector := band.NewSelector(radio, 100*time.Millisecond, zap.NewNop())
	enforcer := timing.NewEnforcer(verifier, nil, nil, zap.NewNop())

	d := New(queue, enforcer, verifier, selector, radio, faults, monitor, auditLog,
		nil, zap.NewNop(), Options{SweepInterval: 10 * time.Millisecond, PollInterval: 5 * time.Millisecond})
	d.RegisterTransmitDefault()
	return &harness{d: d, queue: queue, verifier: verifier, radio: radio,
		monitor: monitor, audit: auditLog, faults: faults}
}

func (h *harness) signed(t *testing.T, cmd message.CommandType) *message.Message {
	t.Helper()
	msg, err := message.NewCommand(cmd, message.ComponentGround, message.ComponentFlight, nil)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	if err := h.verifier.Sign(msg); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return msg
}

func TestSubmitRejectsUnsignedMessage(t *testing.T) {
	h := newHarness(t, 10, false)
	msg, _ := message.NewCommand(message.SendStatus, message.ComponentGround, message.ComponentFlight, nil)

	if err := h.d.Submit(msg); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if h.queue.Len() != 0 {
		t.Fatal("rejected message must not be queued")
	}
	if len(h.faults.handled) != 1 || h.faults.handled[0].Kind != fault.KindAuthFailure {
		t.Fatalf("faults = %v, want one auth failure", h.faults.handled)
	}
}

func TestSubmitEnqueuesSignedMessage(t *testing.T) {
	h := newHarness(t, 10, false)
	msg := h.signed(t, message.RequestTelemetry)

	if err := h.d.Submit(msg); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if h.queue.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", h.queue.Len())
	}
	if len(h.monitor.enqueued) != 1 || h.monitor.enqueued[0] != msg.ID {
		t.Fatalf("monitor enqueued = %v", h.monitor.enqueued)
	}
}

func TestDrainDispatchesStrictlyByPriority(t *testing.T) {
	h := newHarness(t, 10, false)

	low := h.signed(t, message.SendStatus)
	high := h.signed(t, message.UpdateOrbit)
	emergency := h.signed(t, message.EmergencyAbort)
	for _, m := range []*message.Message{low, high, emergency} {
		if err := h.d.Submit(m); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	h.d.drain(context.Background())

	want := []uint64{emergency.ID, high.ID, low.ID}
	if len(h.monitor.dequeued) != 3 {
		t.Fatalf("dequeued %d messages, want 3", len(h.monitor.dequeued))
	}
	for i, id := range want {
		if h.monitor.dequeued[i] != id {
			t.Fatalf("dispatch order %v, want %v", h.monitor.dequeued, want)
		}
	}
	if frames := h.radio.Sent(); len(frames) != 3 {
		t.Fatalf("transmitted %d frames, want 3", len(frames))
	}
	for _, outcome := range h.audit.outcomes() {
		if outcome != audit.OutcomeSuccess {
			t.Fatalf("outcomes = %v", h.audit.outcomes())
		}
	}
}

func TestAdmissionFloorHoldsBackLowTraffic(t *testing.T) {
	h := newHarness(t, 10, false)
	h.faults.floor = message.Critical

	low := h.signed(t, message.SendStatus)
	critical := h.signed(t, message.AbortMission)
	h.d.Submit(low)
	h.d.Submit(critical)

	h.d.drain(context.Background())

	if len(h.monitor.dequeued) != 1 || h.monitor.dequeued[0] != critical.ID {
		t.Fatalf("dequeued = %v, want only the critical message", h.monitor.dequeued)
	}
	// The low message stays queued for after recovery, not dropped.
	if h.queue.Len() != 1 {
		t.Fatalf("queue len = %d, want the low message retained", h.queue.Len())
	}

	h.faults.mu.Lock()
	h.faults.floor = message.Low
	h.faults.mu.Unlock()
	h.d.drain(context.Background())
	if h.queue.Len() != 0 {
		t.Fatal("low message must dispatch once the floor recovers")
	}
}

func TestEvictionSurfacesAsDrop(t *testing.T) {
	h := newHarness(t, 1, true)

	low := h.signed(t, message.SendStatus)
	emergency := h.signed(t, message.EmergencyAbort)
	if err := h.d.Submit(low); err != nil {
		t.Fatalf("Submit low: %v", err)
	}
	if err := h.d.Submit(emergency); err != nil {
		t.Fatalf("Submit emergency: %v", err)
	}

	if len(h.monitor.evicted) != 1 || h.monitor.evicted[0] != low.ID {
		t.Fatalf("evicted = %v, want the low message", h.monitor.evicted)
	}
	found := false
	for _, r := range h.audit.records {
		if r.id == low.ID && r.outcome == audit.OutcomeDropped {
			found = true
		}
	}
	if !found {
		t.Fatal("eviction must leave a DROPPED audit record")
	}
}

func TestQueueFullWithoutEvictionRejects(t *testing.T) {
	h := newHarness(t, 1, false)

	h.d.Submit(h.signed(t, message.SendStatus))
	err := h.d.Submit(h.signed(t, message.EmergencyAbort))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if len(h.faults.handled) != 1 || h.faults.handled[0].Kind != fault.KindQueueOverflow {
		t.Fatalf("faults = %v, want queue overflow", h.faults.handled)
	}
}

func TestRetryPolicyRequeuesFailedMessage(t *testing.T) {
	h := newHarness(t, 10, false)
	h.faults.action = fault.Action{Kind: fault.ActionRetry, MaxRetries: 3}
	h.radio.TransmitErr = transceiver.HardwareError(message.ComponentComms, "pa fault")

	msg := h.signed(t, message.UpdateOrbit)
	h.d.Submit(msg)
	h.queue.Dequeue()
	h.d.dispatchOne(context.Background(), msg)

	if msg.Retries != 1 {
		t.Fatalf("Retries = %d, want 1", msg.Retries)
	}
	if h.queue.Len() != 1 {
		t.Fatal("failed message with retry budget must requeue")
	}
	if got := h.audit.outcomes(); len(got) == 0 || got[len(got)-1] != audit.OutcomeFailed {
		t.Fatalf("outcomes = %v, want trailing FAILED", got)
	}
}

func TestUnregisteredCommandFailsAsUnavailable(t *testing.T) {
	h := newHarness(t, 10, false)
	// Rebuild the registry empty.
	h.d.mu.Lock()
	h.d.executors = make(map[message.CommandType]Executor)
	h.d.mu.Unlock()

	msg := h.signed(t, message.Deploy)
	h.d.dispatchOne(context.Background(), msg)

	if len(h.faults.handled) != 1 || h.faults.handled[0].Kind != fault.KindCommLoss {
		t.Fatalf("faults = %v, want comm loss from unavailable executor", h.faults.handled)
	}
	if got := h.audit.outcomes(); len(got) != 1 || got[0] != audit.OutcomeFailed {
		t.Fatalf("outcomes = %v", got)
	}
}

func TestTelemetryRidesTransmitPath(t *testing.T) {
	h := newHarness(t, 10, false)
	msg, err := message.NewTelemetry(message.ComponentFlight, message.ComponentGround,
		message.Medium, []byte("battery nominal"), "utf8")
	if err != nil {
		t.Fatalf("NewTelemetry: %v", err)
	}
	if err := h.verifier.Sign(msg); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	h.d.Submit(msg)
	h.d.drain(context.Background())

	if frames := h.radio.Sent(); len(frames) != 1 {
		t.Fatalf("transmitted %d frames, want 1", len(frames))
	}
}

func TestRunDispatchesEndToEnd(t *testing.T) {
	h := newHarness(t, 10, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.d.Run(ctx)
	}()

	if err := h.d.Submit(h.signed(t, message.EmergencyHalt)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(h.radio.Sent()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(h.radio.Sent()) != 1 {
		t.Fatal("message not dispatched by the running loop")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestHousekeepingSweepsExpired(t *testing.T) {
	h := newHarness(t, 10, false)

	msg := h.signed(t, message.SendStatus)
	msg.TTL = time.Millisecond
	h.d.Submit(msg)
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	h.d.housekeepingLoop(ctx)

	if h.queue.Len() != 0 {
		t.Fatal("expired message still queued after sweep")
	}
	h.monitor.mu.Lock()
	expired := h.monitor.expired
	h.monitor.mu.Unlock()
	if expired != 1 {
		t.Fatalf("expired count = %d, want 1", expired)
	}
}
