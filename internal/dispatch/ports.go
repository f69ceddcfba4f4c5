package dispatch

import (
	"context"
	"time"

	"github.com/mission-control/mdc/internal/audit"
	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/fault"
	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/telemetry"
)

// Executor handles one command type.
type Executor interface {
	Execute(ctx context.Context, msg *message.Message) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, msg *message.Message) error

func (f ExecutorFunc) Execute(ctx context.Context, msg *message.Message) error {
	return f(ctx, msg)
}

// Monitor is the slice of the monitoring sink the dispatcher feeds.
type Monitor interface {
	RecordEnqueued(*message.Message, int)
	RecordDequeued(*message.Message, int)
	RecordEvicted(*message.Message)
	RecordRejected(reason string)
	RecordExpired([]*message.Message)
	RecordBandSwitch(band.Band)
	SetQueueDepth(int)
}

// FaultPort is the slice of the fault manager the dispatcher drives.
type FaultPort interface {
	Mode() fault.Mode
	MinDispatchPriority() message.Priority
	Feed()
	Handle(fault.Fault) fault.Action
	NoteHealthy()
}

// BandPort is the slice of the band selector the transmit path uses.
type BandPort interface {
	Pick(band.Profile) band.Choice
	Switch(ctx context.Context, b band.Band) error
	Current() band.Band
	Report(b band.Band, c band.Conditions, ok bool)
}

// AuditPort records dispatched commands.
type AuditPort interface {
	Record(msg *message.Message, outcome string, latency time.Duration, detail string)
}

// Production implementations satisfy the ports.
var (
	_ Monitor   = (*telemetry.Recorder)(nil)
	_ FaultPort = (*fault.Manager)(nil)
	_ BandPort  = (*band.Selector)(nil)
	_ AuditPort = (*audit.Logger)(nil)
)
