package message

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ComponentID addresses a spacecraft or ground subsystem on the wire.
type ComponentID uint16

// Well-known component addresses.
const (
	ComponentGround     ComponentID = 0x0001
	ComponentFlight     ComponentID = 0x0010
	ComponentComms      ComponentID = 0x0011
	ComponentPower      ComponentID = 0x0012
	ComponentAttitude   ComponentID = 0x0013
	ComponentPayload    ComponentID = 0x0014
	ComponentThermal    ComponentID = 0x0015
	ComponentPropulsion ComponentID = 0x0016
)

// PayloadKind discriminates what a message carries.
type PayloadKind uint8

const (
	// PayloadCommand carries an operation from the closed catalogue.
	PayloadCommand PayloadKind = 1
	// PayloadTelemetry carries encoded sensor or status data.
	PayloadTelemetry PayloadKind = 2
)

// Payload is the content of a message. For commands, Command and Args are
// set; for telemetry, Data and Format are set.
type Payload struct {
	Kind    PayloadKind
	Command CommandType
	Args    []byte
	Data    []byte
	Format  string
}

// Message is the unit of scheduling and dispatch. Priority is derived from
// the command type at construction and never changes afterwards.
type Message struct {
	ID          uint64
	Priority    Priority
	CreatedAt   time.Time
	Source      ComponentID
	Destination ComponentID
	Payload     Payload
	Token       string
	TTL         time.Duration
	Retries     int
	MaxRetries  int
}

var nextID atomic.Uint64

// NewCommand builds a command message. The priority is the command's fixed
// tier binding.
func NewCommand(cmd CommandType, src, dst ComponentID, args []byte) (*Message, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("message: unknown command opcode 0x%04X", uint16(cmd))
	}
	return &Message{
		ID:          nextID.Add(1),
		Priority:    cmd.Priority(),
		CreatedAt:   time.Now(),
		Source:      src,
		Destination: dst,
		Payload: Payload{
			Kind:    PayloadCommand,
			Command: cmd,
			Args:    args,
		},
		MaxRetries: defaultMaxRetries(cmd.Priority()),
	}, nil
}

// NewTelemetry builds a telemetry message at the given priority.
func NewTelemetry(src, dst ComponentID, prio Priority, data []byte, format string) (*Message, error) {
	if !prio.Valid() {
		return nil, fmt.Errorf("message: invalid priority %d", prio)
	}
	return &Message{
		ID:          nextID.Add(1),
		Priority:    prio,
		CreatedAt:   time.Now(),
		Source:      src,
		Destination: dst,
		Payload: Payload{
			Kind:   PayloadTelemetry,
			Data:   data,
			Format: format,
		},
		MaxRetries: defaultMaxRetries(prio),
	}, nil
}

// Expired reports whether the message's TTL has elapsed at now. Messages
// without a TTL never expire.
func (m *Message) Expired(now time.Time) bool {
	if m.TTL <= 0 {
		return false
	}
	return now.Sub(m.CreatedAt) > m.TTL
}

// CanRetry reports whether the retry budget allows another attempt.
func (m *Message) CanRetry() bool {
	return m.Retries < m.MaxRetries
}

// RecordAttempt consumes one unit of the retry budget.
func (m *Message) RecordAttempt() {
	m.Retries++
}

// IsCommand reports whether the payload carries a catalogue command.
func (m *Message) IsCommand() bool {
	return m.Payload.Kind == PayloadCommand
}

// Age returns how long the message has been in flight at now.
func (m *Message) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// Higher-priority traffic gets a larger retry budget since a lost emergency
// command is costlier than a lost status report.
func defaultMaxRetries(p Priority) int {
	switch p {
	case Emergency, Critical:
		return 5
	case High:
		return 3
	default:
		return 1
	}
}
