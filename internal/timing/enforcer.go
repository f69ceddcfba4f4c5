package timing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/message"
)

// Validation failures. These short-circuit before execution, so they never
// produce a timing sample.
var (
	ErrAuthentication = errors.New("timing: message failed authentication")
	ErrStale          = errors.New("timing: message outside replay window")
)

// Authenticator validates a message before it may execute.
type Authenticator interface {
	Authenticate(*message.Message) bool
	CheckFreshness(*message.Message) bool
}

// SampleSink receives one sample per executed command.
type SampleSink interface {
	RecordSample(Sample)
}

// ViolationNotifier is told synchronously about real-time tier violations.
type ViolationNotifier interface {
	NotifyViolation(Sample)
}

// Sample is the immutable timing record of one execution.
type Sample struct {
	MessageID uint64
	Command   message.CommandType
	Priority  message.Priority
	Elapsed   time.Duration
	Contract  time.Duration
	Violated  bool
	At        time.Time
}

// Action is the unit of work the enforcer times.
type Action func(ctx context.Context) error

// Enforcer runs commands under their tier's latency contract.
type Enforcer struct {
	auth     Authenticator
	sink     SampleSink
	notifier ViolationNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEnforcer wires the enforcer's collaborators. sink and notifier may be
// nil when the caller does not need samples or escalation.
func NewEnforcer(auth Authenticator, sink SampleSink, notifier ViolationNotifier, logger *zap.Logger) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{
		auth:     auth,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute validates msg, runs action exactly once, and records a timing
// sample. Validation failure returns ErrAuthentication or ErrStale without
// running action and without producing a sample. The action is never
// preempted; a contract violation is recorded after it returns.
func (e *Enforcer) Execute(ctx context.Context, msg *message.Message, action Action) (Sample, error) {
	if !e.auth.Authenticate(msg) {
		e.logger.Warn("message rejected",
			zap.Uint64("message_id", msg.ID),
			zap.String("reason", "authentication"))
		return Sample{}, ErrAuthentication
	}
	if !e.auth.CheckFreshness(msg) {
		e.logger.Warn("message rejected",
			zap.Uint64("message_id", msg.ID),
			zap.String("reason", "stale"))
		return Sample{}, ErrStale
	}

	contract := msg.Priority.MaxLatency()
	start := e.now()
	execErr := action(ctx)
	elapsed := e.now().Sub(start)

	sample := Sample{
		MessageID: msg.ID,
		Command:   msg.Payload.Command,
		Priority:  msg.Priority,
		Elapsed:   elapsed,
		Contract:  contract,
		Violated:  elapsed > contract,
		At:        start,
	}

	if e.sink != nil {
		e.sink.RecordSample(sample)
	}

	if sample.Violated {
		e.logger.Warn("latency contract violated",
			zap.Uint64("message_id", msg.ID),
			zap.String("command", sample.Command.String()),
			zap.String("priority", sample.Priority.String()),
			zap.Duration("elapsed", elapsed),
			zap.Duration("contract", contract))
		if e.notifier != nil && msg.Priority.IsRealTime() {
			e.notifier.NotifyViolation(sample)
		}
	}

	if execErr != nil {
		return sample, fmt.Errorf("timing: execute %s: %w", msg.Payload.Command, execErr)
	}
	return sample, nil
}
