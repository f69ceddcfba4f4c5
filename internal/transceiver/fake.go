package transceiver

import (
	"context"
	"sync"
	"time"

	"github.com/mission-control/mdc/internal/band"
)

// Fake is an in-memory transceiver with programmable latency and failure
// injection. Operations sleep their configured latency but abort early on
// context cancellation.
type Fake struct {
	// Per-op injected failures; nil means success.
	SetBandErr  error
	TransmitErr error
	ReceiveErr  error
	QualityErr  error

	// Per-op artificial latency.
	SetBandLatency  time.Duration
	TransmitLatency time.Duration

	// Reported link quality.
	Quality Quality

	mu       sync.Mutex
	current  band.Band
	sent     [][]byte
	incoming [][]byte
}

var _ Transceiver = (*Fake)(nil)

// NewFake starts on UHF with a clean link.
func NewFake() *Fake {
	return &Fake{
		current: band.UHF,
		Quality: Quality{SNRdB: 20, RSSIdBm: -80, BER: 1e-7},
	}
}

func (f *Fake) SetBand(ctx context.Context, b band.Band) error {
	if err := f.wait(ctx, f.SetBandLatency); err != nil {
		return err
	}
	if f.SetBandErr != nil {
		return f.SetBandErr
	}
	f.mu.Lock()
	f.current = b
	f.mu.Unlock()
	return nil
}

func (f *Fake) Transmit(ctx context.Context, frame []byte) error {
	if err := f.wait(ctx, f.TransmitLatency); err != nil {
		return err
	}
	if f.TransmitErr != nil {
		return f.TransmitErr
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	f.mu.Lock()
	f.sent = append(f.sent, buf)
	f.mu.Unlock()
	return nil
}

func (f *Fake) Receive(ctx context.Context) ([]byte, error) {
	if f.ReceiveErr != nil {
		return nil, f.ReceiveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.incoming) == 0 {
		return nil, ErrUnavailable
	}
	frame := f.incoming[0]
	f.incoming = f.incoming[1:]
	return frame, nil
}

func (f *Fake) SignalQuality(ctx context.Context) (Quality, error) {
	if f.QualityErr != nil {
		return Quality{}, f.QualityErr
	}
	return f.Quality, nil
}

// CurrentBand reports where the fake radio is tuned.
func (f *Fake) CurrentBand() band.Band {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Sent returns every transmitted frame in order.
func (f *Fake) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// QueueIncoming stages a frame for the next Receive.
func (f *Fake) QueueIncoming(frame []byte) {
	f.mu.Lock()
	f.incoming = append(f.incoming, frame)
	f.mu.Unlock()
}

func (f *Fake) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
