package fault

import (
	"time"

	"github.com/mission-control/mdc/internal/message"
)

// Kind classifies a fault for policy lookup.
type Kind string

const (
	KindTimingViolation Kind = "timingViolation"
	KindHardwareFailure Kind = "hardwareFailure"
	KindCommLoss        Kind = "communicationLoss"
	KindQueueOverflow   Kind = "queueOverflow"
	KindAuthFailure     Kind = "authenticationFailure"
	KindWatchdogTimeout Kind = "watchdogTimeout"
)

// ActionKind names a recovery strategy.
type ActionKind uint8

const (
	ActionRetry ActionKind = iota
	ActionRestartComponent
	ActionFailover
	ActionSafeMode
)

func (a ActionKind) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionRestartComponent:
		return "restartComponent"
	case ActionFailover:
		return "failover"
	case ActionSafeMode:
		return "safeMode"
	default:
		return "unknown"
	}
}

// Action is the recovery decision for one fault. Fields beyond Kind are
// populated per strategy.
type Action struct {
	Kind       ActionKind
	MaxRetries int
	Backoff    time.Duration
	Component  message.ComponentID
	Backup     string
}

// defaultPolicies maps fault kinds to recovery actions. Kinds absent from
// the table take the fail-safe ActionSafeMode default.
func defaultPolicies() map[Kind]Action {
	return map[Kind]Action{
		KindTimingViolation: {Kind: ActionRetry, MaxRetries: 3, Backoff: 10 * time.Millisecond},
		KindQueueOverflow:   {Kind: ActionRetry, MaxRetries: 1, Backoff: 100 * time.Millisecond},
		KindHardwareFailure: {Kind: ActionRestartComponent},
		KindCommLoss:        {Kind: ActionFailover, Backup: "uhf-omni"},
		KindAuthFailure:     {Kind: ActionRetry, MaxRetries: 0},
		KindWatchdogTimeout: {Kind: ActionSafeMode},
	}
}
