package message

import "time"

// Priority is a strictly ordered five-level classification for messages.
// Higher numeric values are serviced first.
type Priority uint8

const (
	// Low priority - routine housekeeping traffic.
	Low Priority = 1
	// Medium priority - normal telemetry and configuration traffic.
	Medium Priority = 2
	// High priority - important operational commands.
	High Priority = 3
	// Critical priority - mission-critical commands and alerts.
	Critical Priority = 4
	// Emergency priority - life-safety and abort-class commands.
	Emergency Priority = 5
)

// MaxLatency returns the immutable maximum-latency contract for this tier.
// A command whose measured execution time exceeds this bound is a timing
// violation.
func (p Priority) MaxLatency() time.Duration {
	switch p {
	case Emergency:
		return 1 * time.Millisecond
	case Critical:
		return 10 * time.Millisecond
	case High:
		return 100 * time.Millisecond
	case Medium:
		return 1000 * time.Millisecond
	default:
		return 10000 * time.Millisecond
	}
}

// MaxFrequencyHz returns the expected maximum processing rate for this tier.
func (p Priority) MaxFrequencyHz() int {
	switch p {
	case Emergency:
		return 2000
	case Critical:
		return 1000
	case High:
		return 500
	case Medium:
		return 100
	default:
		return 10
	}
}

// IsRealTime reports whether this tier carries hard real-time constraints.
func (p Priority) IsRealTime() bool {
	return p == Critical || p == Emergency
}

// Valid reports whether p is one of the five defined levels.
func (p Priority) Valid() bool {
	return p >= Low && p <= Emergency
}

func (p Priority) String() string {
	switch p {
	case Emergency:
		return "EMERGENCY"
	case Critical:
		return "CRITICAL"
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}
