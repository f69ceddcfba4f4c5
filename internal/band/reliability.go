package band

import "sync"

// ewmaAlpha controls how fast reliability estimates chase recent outcomes.
const ewmaAlpha = 0.2

// reliabilityPriors seed the estimate before any transmissions are observed.
// Lower bands are more robust so they start higher.
var reliabilityPriors = map[Band]float64{
	UHF: 0.99,
	S:   0.97,
	X:   0.95,
	K:   0.90,
	Ka:  0.88,
}

type regimeKey struct {
	band   Band
	regime Regime
}

// reliabilityTable tracks an exponentially weighted success rate per
// (band, weather regime) pair.
type reliabilityTable struct {
	mu    sync.RWMutex
	rates map[regimeKey]float64
}

func newReliabilityTable() *reliabilityTable {
	return &reliabilityTable{rates: make(map[regimeKey]float64)}
}

func (t *reliabilityTable) get(b Band, r Regime) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rate, ok := t.rates[regimeKey{b, r}]; ok {
		return rate
	}
	return reliabilityPriors[b]
}

func (t *reliabilityTable) observe(b Band, r Regime, ok bool) {
	outcome := 0.0
	if ok {
		outcome = 1.0
	}
	key := regimeKey{b, r}

	t.mu.Lock()
	defer t.mu.Unlock()
	prev, seen := t.rates[key]
	if !seen {
		prev = reliabilityPriors[b]
	}
	t.rates[key] = (1-ewmaAlpha)*prev + ewmaAlpha*outcome
}
