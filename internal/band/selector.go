package band

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mission-control/mdc/internal/message"
)

// ErrBandSwitch is returned when a band switch fails or exceeds its bound.
var ErrBandSwitch = errors.New("band: switch failed")

// DefaultSwitchTimeout bounds a band switch when none is configured.
const DefaultSwitchTimeout = 500 * time.Millisecond

// FallbackBand is the band of last resort. UHF is the most robust link and
// the safe place to land after a failed switch.
const FallbackBand = UHF

// Switcher is the slice of the radio the selector drives.
type Switcher interface {
	SetBand(ctx context.Context, b Band) error
}

// Profile describes one transmission to select a band for.
type Profile struct {
	Priority      message.Priority
	DataSizeBytes int
	Conditions    Conditions
}

// transferBudget is how long a transfer at this tier may reasonably take.
// It sizes the required data rate; it is unrelated to the execution latency
// contract.
func transferBudget(p message.Priority) time.Duration {
	switch p {
	case message.Emergency:
		return 1 * time.Second
	case message.Critical:
		return 5 * time.Second
	case message.High:
		return 15 * time.Second
	case message.Medium:
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}

// Choice is the outcome of one selection.
type Choice struct {
	Band     Band
	Score    float64
	Budget   LinkBudget
	Feasible bool
}

// Selector picks and switches bands.
type Selector struct {
	radio   Switcher
	timeout time.Duration
	logger  *zap.Logger
	table   *reliabilityTable

	mu       sync.Mutex
	current  Band
	lastGood Band
}

// NewSelector builds a selector starting on the fallback band.
func NewSelector(radio Switcher, switchTimeout time.Duration, logger *zap.Logger) *Selector {
	if switchTimeout <= 0 {
		switchTimeout = DefaultSwitchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		radio:    radio,
		timeout:  switchTimeout,
		logger:   logger,
		table:    newReliabilityTable(),
		current:  FallbackBand,
		lastGood: FallbackBand,
	}
}

// Pick scores every band for the profile and returns the winner.
//
// A band is feasible when its achievable rate covers the transfer within the
// tier's budget. Among feasible bands, real-time traffic scores by
// reliability and weather quality alone, while bulk traffic additionally
// weighs throughput share. When no band is feasible, all bands compete with
// their rate shortfall folded into the score. Score ties resolve to the
// tier's preferred band when it is among the leaders; otherwise the ascending
// power-cost evaluation order keeps the cheapest band.
func (s *Selector) Pick(p Profile) Choice {
	required := float64(p.DataSizeBytes*8) / transferBudget(p.Priority).Seconds()
	regime := p.Conditions.Bucket()
	preferred := PreferredFor(p.Priority)

	budgets := make(map[Band]LinkBudget, 5)
	var candidates []Band
	for _, b := range All() {
		budgets[b] = Budget(b, p.Conditions)
		if budgets[b].AchievableBps >= required {
			candidates = append(candidates, b)
		}
	}
	feasible := len(candidates) > 0
	if !feasible {
		candidates = All()
	}

	maxAch := 0.0
	for _, b := range candidates {
		if budgets[b].AchievableBps > maxAch {
			maxAch = budgets[b].AchievableBps
		}
	}

	best := Choice{Band: FallbackBand, Score: -1}
	for _, b := range candidates {
		fit := 1.0
		if !feasible && required > 0 {
			fit = clamp01(budgets[b].AchievableBps / required)
		}
		if !p.Priority.IsRealTime() && maxAch > 0 {
			fit *= budgets[b].AchievableBps / maxAch
		}
		score := fit * qualityFactor(b, p.Conditions) * s.table.get(b, regime)
		cand := Choice{Band: b, Score: score, Budget: budgets[b], Feasible: feasible}
		if better(cand, best, preferred) {
			best = cand
		}
	}

	s.logger.Debug("band selected",
		zap.String("band", best.Band.String()),
		zap.Float64("score", best.Score),
		zap.String("regime", regime.String()),
		zap.Float64("required_bps", required),
		zap.Bool("feasible", best.Feasible))
	return best
}

// better ranks a candidate choice against the current best. Higher score
// wins; on an exact tie the tier's preferred band displaces any other.
func better(cand, best Choice, preferred Band) bool {
	if cand.Score != best.Score {
		return cand.Score > best.Score
	}
	return cand.Band == preferred && best.Band != preferred
}

// Switch moves the radio to target within the configured bound. On failure
// the selector lands the radio back on the last known-good band and reports
// ErrBandSwitch. The system mode is never touched here.
func (s *Selector) Switch(ctx context.Context, target Band) error {
	s.mu.Lock()
	if target == s.current {
		s.mu.Unlock()
		return nil
	}
	lastGood := s.lastGood
	s.mu.Unlock()

	swCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.radio.SetBand(swCtx, target); err != nil {
		s.logger.Warn("band switch failed, reverting",
			zap.String("target", target.String()),
			zap.String("fallback", lastGood.String()),
			zap.Error(err))

		fbCtx, fbCancel := context.WithTimeout(context.Background(), s.timeout)
		defer fbCancel()
		if fbErr := s.radio.SetBand(fbCtx, lastGood); fbErr == nil {
			s.mu.Lock()
			s.current = lastGood
			s.mu.Unlock()
		}
		return fmt.Errorf("%w: to %s: %v", ErrBandSwitch, target, err)
	}

	s.mu.Lock()
	s.current = target
	s.lastGood = target
	s.mu.Unlock()
	return nil
}

// SetFallback rebases the starting and last known-good band. Call during
// wiring, before traffic flows.
func (s *Selector) SetFallback(b Band) {
	s.mu.Lock()
	s.current = b
	s.lastGood = b
	s.mu.Unlock()
}

// Current returns the band the radio is on.
func (s *Selector) Current() Band {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Report feeds one transmission outcome into the reliability history for the
// band under the observed weather regime.
func (s *Selector) Report(b Band, c Conditions, ok bool) {
	s.table.observe(b, c.Bucket(), ok)
}

// Reliability exposes the current estimate for a band and regime.
func (s *Selector) Reliability(b Band, r Regime) float64 {
	return s.table.get(b, r)
}
