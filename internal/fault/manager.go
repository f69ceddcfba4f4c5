package fault

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/timing"
)

const (
	// DefaultWatchdogTimeout is how long the dispatch loop may go without
	// feeding before safe mode is forced.
	DefaultWatchdogTimeout = 10 * time.Second
	// SafeModeEntryBudget bounds how long a safe mode entry may take.
	SafeModeEntryBudget = 5 * time.Second
	// violationStreakLimit is how many consecutive real-time contract
	// violations are tolerated before escalating to safe mode.
	violationStreakLimit = 3
)

// KindModeChange marks events that record a mode transition rather than a
// fault.
const KindModeChange Kind = "modeChange"

// Fault is one runtime failure reported to the manager.
type Fault struct {
	Kind      Kind
	Component message.ComponentID
	Detail    string
	Err       error
}

// Event is the published record of a handled fault or mode transition.
type Event struct {
	ID        string
	Kind      Kind
	Mode      Mode
	Action    string
	Component message.ComponentID
	Detail    string
	At        time.Time
}

// Sink receives fault and mode-change events.
type Sink interface {
	RecordFault(Event)
}

// Manager owns the system mode and applies the recovery policy table. It is
// the ViolationNotifier wired into the timing enforcer.
type Manager struct {
	sink     Sink
	logger   *zap.Logger
	policies map[Kind]Action
	timeout  time.Duration
	now      func() time.Time

	mu              sync.Mutex
	mode            Mode
	lastFeed        time.Time
	tripped         bool
	violationStreak int
}

// NewManager builds a manager in Nominal mode. A zero watchdogTimeout
// selects DefaultWatchdogTimeout.
func NewManager(sink Sink, watchdogTimeout time.Duration, logger *zap.Logger) *Manager {
	if watchdogTimeout <= 0 {
		watchdogTimeout = DefaultWatchdogTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sink:     sink,
		logger:   logger,
		policies: defaultPolicies(),
		timeout:  watchdogTimeout,
		now:      time.Now,
		mode:     Nominal,
		lastFeed: time.Now(),
	}
}

// Mode returns the current operating mode.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// MinDispatchPriority is the admission floor the dispatcher must apply.
func (m *Manager) MinDispatchPriority() message.Priority {
	return m.Mode().AdmissionFloor()
}

// Handle looks up the recovery action for f, publishes the fault event, and
// applies mode changes itself. Retry, restart, and failover decisions are
// returned for the caller to carry out.
func (m *Manager) Handle(f Fault) Action {
	action, ok := m.policies[f.Kind]
	if !ok {
		// Unknown failure kinds take the fail-safe default.
		action = Action{Kind: ActionSafeMode}
	}

	m.logger.Warn("fault handled",
		zap.String("kind", string(f.Kind)),
		zap.String("action", action.Kind.String()),
		zap.String("detail", f.Detail),
		zap.Error(f.Err))

	m.publish(Event{
		ID:        uuid.NewString(),
		Kind:      f.Kind,
		Mode:      m.Mode(),
		Action:    action.Kind.String(),
		Component: f.Component,
		Detail:    f.Detail,
		At:        m.now(),
	})

	if action.Kind == ActionSafeMode {
		m.EnterSafe(string(f.Kind))
	}
	return action
}

// NotifyViolation receives real-time contract violations from the timing
// enforcer. A sustained streak escalates to safe mode.
func (m *Manager) NotifyViolation(s timing.Sample) {
	m.mu.Lock()
	m.violationStreak++
	streak := m.violationStreak
	m.mu.Unlock()

	f := Fault{
		Kind:   KindTimingViolation,
		Detail: s.Command.String(),
	}
	action := m.Handle(f)

	if streak >= violationStreakLimit && action.Kind != ActionSafeMode {
		m.logger.Error("sustained real-time violations",
			zap.Int("streak", streak),
			zap.String("command", s.Command.String()))
		m.EnterSafe("sustained timing violations")
	}
}

// NoteHealthy resets the violation streak after a clean real-time execution.
func (m *Manager) NoteHealthy() {
	m.mu.Lock()
	m.violationStreak = 0
	m.mu.Unlock()
}

// Feed resets the watchdog. Called by the dispatch loop on every iteration.
func (m *Manager) Feed() {
	m.mu.Lock()
	m.lastFeed = m.now()
	m.tripped = false
	m.mu.Unlock()
}

// RunWatchdog blocks until ctx is done, checking feeds at a quarter of the
// timeout. One expiry forces Nominal to Safe exactly once; the watchdog stays
// quiet until the next Feed rearms it.
func (m *Manager) RunWatchdog(ctx context.Context) {
	interval := m.timeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkWatchdog()
		}
	}
}

func (m *Manager) checkWatchdog() {
	m.mu.Lock()
	expired := !m.tripped && m.now().Sub(m.lastFeed) > m.timeout
	if expired {
		m.tripped = true
	}
	m.mu.Unlock()

	if !expired {
		return
	}
	m.Handle(Fault{
		Kind:   KindWatchdogTimeout,
		Detail: "dispatch loop stopped feeding",
	})
}

// EnterSafe transitions to Safe mode. Entering from Safe or Emergency is a
// no-op; Emergency outranks Safe.
func (m *Manager) EnterSafe(reason string) {
	m.transition(Safe, reason, func(from Mode) bool { return from == Nominal })
}

// EnterEmergency transitions to Emergency mode from any other mode.
func (m *Manager) EnterEmergency(reason string) {
	m.transition(Emergency, reason, func(from Mode) bool { return from != Emergency })
}

// Recover returns to Nominal after ground intervention and clears the
// violation streak.
func (m *Manager) Recover(reason string) {
	m.mu.Lock()
	m.violationStreak = 0
	m.mu.Unlock()
	m.transition(Nominal, reason, func(from Mode) bool { return from != Nominal })
}

func (m *Manager) transition(to Mode, reason string, allowed func(from Mode) bool) {
	start := m.now()

	m.mu.Lock()
	from := m.mode
	if !allowed(from) {
		m.mu.Unlock()
		return
	}
	m.mode = to
	m.mu.Unlock()

	elapsed := m.now().Sub(start)
	m.logger.Info("mode transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("reason", reason),
		zap.Duration("entry_time", elapsed))
	if to == Safe && elapsed > SafeModeEntryBudget {
		m.logger.Error("safe mode entry exceeded budget", zap.Duration("entry_time", elapsed))
	}

	m.publish(Event{
		ID:     uuid.NewString(),
		Kind:   KindModeChange,
		Mode:   to,
		Detail: reason,
		At:     m.now(),
	})
}

func (m *Manager) publish(e Event) {
	if m.sink != nil {
		m.sink.RecordFault(e)
	}
}
