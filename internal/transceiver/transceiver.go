package transceiver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/message"
)

// Normalized hardware errors.
var (
	// ErrHardware marks a component-level hardware fault.
	ErrHardware = errors.New("transceiver: hardware fault")
	// ErrUnavailable marks a radio that is powered down or not responding.
	ErrUnavailable = errors.New("transceiver: unavailable")
)

// HardwareError wraps ErrHardware with the failing component.
func HardwareError(component message.ComponentID, op string) error {
	return fmt.Errorf("%w: %s (component 0x%04X)", ErrHardware, op, uint16(component))
}

// Quality is a point-in-time link quality reading.
type Quality struct {
	SNRdB   float64
	RSSIdBm float64
	BER     float64
}

// Transceiver is the radio port. All operations honor context cancellation.
type Transceiver interface {
	SetBand(ctx context.Context, b band.Band) error
	Transmit(ctx context.Context, frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
	SignalQuality(ctx context.Context) (Quality, error)
}
