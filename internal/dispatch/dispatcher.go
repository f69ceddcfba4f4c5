package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/audit"
	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/fault"
	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/scheduler"
	"github.com/mission-control/mdc/internal/timing"
	"github.com/mission-control/mdc/internal/transceiver"
)

// Submission failures.
var (
	ErrRejected     = errors.New("dispatch: message rejected")
	ErrNotRunnable  = errors.New("dispatch: no executor registered")
	ErrInvalidInput = errors.New("dispatch: invalid message")
)

// Options tune the dispatcher loops.
type Options struct {
	// SweepInterval paces the TTL housekeeping sweep.
	SweepInterval time.Duration
	// PollInterval bounds how long the loop idles between queue checks.
	PollInterval time.Duration
}

func (o *Options) fill() {
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 20 * time.Millisecond
	}
}

// Dispatcher owns the queue consumer side of the engine.
type Dispatcher struct {
	queue    *scheduler.Queue
	enforcer *timing.Enforcer
	verifier timing.Authenticator
	bands    BandPort
	radio    transceiver.Transceiver
	faults   FaultPort
	monitor  Monitor
	auditLog AuditPort
	logger   *zap.Logger
	opts     Options

	// weather feed for band selection
	conditions func() band.Conditions

	mu        sync.RWMutex
	executors map[message.CommandType]Executor

	wake chan struct{}
}

// New wires a dispatcher. conditions supplies the current weather for band
// selection; a nil func means clear-sky defaults.
func New(
	queue *scheduler.Queue,
	enforcer *timing.Enforcer,
	verifier timing.Authenticator,
	bands BandPort,
	radio transceiver.Transceiver,
	faults FaultPort,
	monitor Monitor,
	auditLog AuditPort,
	conditions func() band.Conditions,
	logger *zap.Logger,
	opts Options,
) *Dispatcher {
	opts.fill()
	if conditions == nil {
		conditions = func() band.Conditions { return band.Conditions{} }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:      queue,
		enforcer:   enforcer,
		verifier:   verifier,
		bands:      bands,
		radio:      radio,
		faults:     faults,
		monitor:    monitor,
		auditLog:   auditLog,
		logger:     logger,
		opts:       opts,
		conditions: conditions,
		executors:  make(map[message.CommandType]Executor),
		wake:       make(chan struct{}, 1),
	}
}

// Register binds an executor to a command type, replacing any previous one.
func (d *Dispatcher) Register(cmd message.CommandType, ex Executor) {
	d.mu.Lock()
	d.executors[cmd] = ex
	d.mu.Unlock()
}

// RegisterTransmitDefault binds the RF transmit path to every catalogue
// command that has no executor yet.
func (d *Dispatcher) RegisterTransmitDefault() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cmd := range message.Commands() {
		if _, ok := d.executors[cmd]; !ok {
			d.executors[cmd] = ExecutorFunc(d.transmit)
		}
	}
}

func (d *Dispatcher) executorFor(cmd message.CommandType) (Executor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ex, ok := d.executors[cmd]
	return ex, ok
}

// Submit authenticates and enqueues a message. Safe for any goroutine.
// Ingestion stays open in every mode so recovery commands can always arrive.
func (d *Dispatcher) Submit(msg *message.Message) error {
	if msg == nil || !msg.Priority.Valid() {
		return ErrInvalidInput
	}
	if !d.verifier.Authenticate(msg) {
		d.monitor.RecordRejected("authentication")
		d.faults.Handle(fault.Fault{
			Kind:      fault.KindAuthFailure,
			Component: msg.Source,
			Detail:    fmt.Sprintf("message %d", msg.ID),
		})
		return fmt.Errorf("%w: authentication", ErrRejected)
	}
	if !d.verifier.CheckFreshness(msg) {
		d.monitor.RecordRejected("stale")
		return fmt.Errorf("%w: outside replay window", ErrRejected)
	}

	evicted, err := d.queue.Enqueue(msg)
	if err != nil {
		d.monitor.RecordRejected("queueFull")
		d.faults.Handle(fault.Fault{
			Kind:   fault.KindQueueOverflow,
			Detail: fmt.Sprintf("capacity %d", d.queue.Capacity()),
		})
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if evicted != nil {
		d.monitor.RecordEvicted(evicted)
		d.auditLog.Record(evicted, audit.OutcomeDropped, 0, "evicted by higher priority arrival")
	}
	d.monitor.RecordEnqueued(msg, d.queue.Len())

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run starts the dispatch loop, the housekeeping loop, and the watchdog
// feeder, and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		d.dispatchLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		d.housekeepingLoop(ctx)
	}()

	wg.Wait()
}

// dispatchLoop is the single logical consumer: it drains everything at or
// above the admission floor strictly in priority order before yielding.
func (d *Dispatcher) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		d.faults.Feed()
		d.drain(ctx)

		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		head, ok := d.queue.Peek()
		if !ok {
			return
		}
		// Traffic below the floor stays queued until the mode recovers.
		if head.Priority < d.faults.MinDispatchPriority() {
			return
		}
		msg, ok := d.queue.Dequeue()
		if !ok {
			return
		}
		d.monitor.RecordDequeued(msg, d.queue.Len())
		d.dispatchOne(ctx, msg)
		d.faults.Feed()
	}
}

// dispatchOne runs one message through the timing enforcer and routes the
// outcome to audit, monitoring, and fault handling.
func (d *Dispatcher) dispatchOne(ctx context.Context, msg *message.Message) {
	var ex Executor
	if !msg.IsCommand() {
		// Telemetry always rides the RF path.
		ex = ExecutorFunc(d.transmit)
	} else if reg, ok := d.executorFor(msg.Payload.Command); ok {
		ex = reg
	} else {
		// Unregistered commands fail as unavailable hardware, never panic.
		ex = ExecutorFunc(func(context.Context, *message.Message) error {
			return fmt.Errorf("%w: %s: %v", ErrNotRunnable, msg.Payload.Command, transceiver.ErrUnavailable)
		})
	}

	sample, err := d.enforcer.Execute(ctx, msg, func(ctx context.Context) error {
		return ex.Execute(ctx, msg)
	})

	switch {
	case errors.Is(err, timing.ErrAuthentication), errors.Is(err, timing.ErrStale):
		d.monitor.RecordRejected("validation")
		d.auditLog.Record(msg, audit.OutcomeRejected, 0, err.Error())
		return
	case err != nil:
		d.auditLog.Record(msg, audit.OutcomeFailed, sample.Elapsed, err.Error())
		d.recover(msg, err)
		return
	}

	d.auditLog.Record(msg, audit.OutcomeSuccess, sample.Elapsed, "")
	if msg.Priority.IsRealTime() && !sample.Violated {
		d.faults.NoteHealthy()
	}
}

// recover classifies an execution failure and applies the returned policy.
func (d *Dispatcher) recover(msg *message.Message, execErr error) {
	kind := fault.KindHardwareFailure
	switch {
	case errors.Is(execErr, band.ErrBandSwitch), errors.Is(execErr, transceiver.ErrUnavailable):
		kind = fault.KindCommLoss
	case errors.Is(execErr, transceiver.ErrHardware):
		kind = fault.KindHardwareFailure
	}

	action := d.faults.Handle(fault.Fault{
		Kind:      kind,
		Component: msg.Destination,
		Detail:    msg.Payload.Command.String(),
		Err:       execErr,
	})

	if action.Kind == fault.ActionRetry && msg.CanRetry() {
		msg.RecordAttempt()
		if _, err := d.queue.Enqueue(msg); err == nil {
			d.monitor.RecordEnqueued(msg, d.queue.Len())
			d.logger.Info("message requeued for retry",
				zap.Uint64("message_id", msg.ID),
				zap.Int("attempt", msg.Retries))
			return
		}
	}
	d.logger.Warn("message abandoned after failure",
		zap.Uint64("message_id", msg.ID),
		zap.String("command", msg.Payload.Command.String()),
		zap.String("action", action.Kind.String()),
		zap.Error(execErr))
}

// housekeepingLoop sweeps expired residents and refreshes the depth gauge.
func (d *Dispatcher) housekeepingLoop(ctx context.Context) {
	ticker := time.NewTicker(d.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := d.queue.ExpireBefore(time.Now())
			if len(expired) > 0 {
				d.monitor.RecordExpired(expired)
				for _, m := range expired {
					d.auditLog.Record(m, audit.OutcomeDropped, 0, "ttl expired")
				}
			}
			d.monitor.SetQueueDepth(d.queue.Len())
		}
	}
}
