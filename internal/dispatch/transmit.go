package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/spacepacket"
)

// Transmit exposes the RF path for executors that do local work before the
// message still has to go out over the link.
func (d *Dispatcher) Transmit(ctx context.Context, msg *message.Message) error {
	return d.transmit(ctx, msg)
}

// transmit is the RF path: encode to a space packet, pick the best band for
// the current weather, switch within the bound, and send the frame. Band
// switch failures do not abort the transmission; the selector has already
// landed the radio on a known-good band.
func (d *Dispatcher) transmit(ctx context.Context, msg *message.Message) error {
	frame, err := spacepacket.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	conditions := d.conditions()
	size := len(msg.Payload.Args) + len(msg.Payload.Data)
	choice := d.bands.Pick(band.Profile{
		Priority:      msg.Priority,
		DataSizeBytes: size,
		Conditions:    conditions,
	})

	if choice.Band != d.bands.Current() {
		if err := d.bands.Switch(ctx, choice.Band); err != nil {
			d.logger.Warn("transmitting on fallback band",
				zap.String("wanted", choice.Band.String()),
				zap.String("using", d.bands.Current().String()),
				zap.Error(err))
		} else {
			d.monitor.RecordBandSwitch(choice.Band)
		}
	}

	used := d.bands.Current()
	err = d.radio.Transmit(ctx, frame)
	d.bands.Report(used, conditions, err == nil)
	if err != nil {
		return fmt.Errorf("transmit on %s: %w", used, err)
	}
	return nil
}
