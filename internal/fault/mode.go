package fault

import "github.com/mission-control/mdc/internal/message"

// Mode is the system operating mode.
type Mode uint8

const (
	// Nominal processes all traffic.
	Nominal Mode = iota
	// Safe processes only real-time traffic while the system recovers.
	Safe
	// Emergency processes only emergency traffic.
	Emergency
)

func (m Mode) String() string {
	switch m {
	case Nominal:
		return "NOMINAL"
	case Safe:
		return "SAFE"
	case Emergency:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

// AdmissionFloor is the lowest priority the dispatcher may process in this
// mode.
func (m Mode) AdmissionFloor() message.Priority {
	switch m {
	case Safe:
		return message.Critical
	case Emergency:
		return message.Emergency
	default:
		return message.Low
	}
}
