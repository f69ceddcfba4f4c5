package band

import (
	"time"

	"github.com/mission-control/mdc/internal/message"
)

// Band identifies one of the five RF bands on the space link.
type Band uint8

const (
	UHF Band = iota
	S
	X
	K
	Ka
)

// All lists every band in ascending frequency order.
func All() []Band { return []Band{UHF, S, X, K, Ka} }

func (b Band) String() string {
	switch b {
	case UHF:
		return "UHF"
	case S:
		return "S"
	case X:
		return "X"
	case K:
		return "K"
	case Ka:
		return "Ka"
	default:
		return "unknown"
	}
}

// characteristics are the static RF properties of one band.
type characteristics struct {
	centerGHz   float64
	bandwidthHz float64
	maxRateBps  float64
	// combined tx+rx antenna gain, dBi
	antennaGaindBi float64
	// rain attenuation regression coefficients (specific attenuation
	// k*R^alpha in dB/km at the band's center frequency)
	rainK     float64
	rainAlpha float64
	// clear-air gaseous absorption, dB/km
	gasdBPerKm float64
	// how strongly weather degrades this band, 0..1
	weatherSensitivity float64
	// relative transmit power cost, used only to break score ties
	powerCost float64
	// hardware settling time when switching onto this band
	latencyFloor time.Duration
}

var bandTable = map[Band]characteristics{
	UHF: {
		centerGHz: 0.435, bandwidthHz: 25e3, maxRateBps: 9.6e3,
		antennaGaindBi: 10,
		rainK:          0.0000352, rainAlpha: 0.880, gasdBPerKm: 0.001,
		weatherSensitivity: 0.05, powerCost: 1.0, latencyFloor: 10 * time.Millisecond,
	},
	S: {
		centerGHz: 2.2, bandwidthHz: 5e6, maxRateBps: 2e6,
		antennaGaindBi: 30,
		rainK:          0.000154, rainAlpha: 0.963, gasdBPerKm: 0.002,
		weatherSensitivity: 0.10, powerCost: 1.5, latencyFloor: 20 * time.Millisecond,
	},
	X: {
		centerGHz: 8.4, bandwidthHz: 50e6, maxRateBps: 150e6,
		antennaGaindBi: 60,
		rainK:          0.01217, rainAlpha: 1.2571, gasdBPerKm: 0.008,
		weatherSensitivity: 0.30, powerCost: 2.0, latencyFloor: 50 * time.Millisecond,
	},
	K: {
		centerGHz: 26.0, bandwidthHz: 100e6, maxRateBps: 600e6,
		antennaGaindBi: 80,
		rainK:          0.1724, rainAlpha: 0.9884, gasdBPerKm: 0.060,
		weatherSensitivity: 0.70, powerCost: 3.0, latencyFloor: 80 * time.Millisecond,
	},
	Ka: {
		centerGHz: 32.0, bandwidthHz: 500e6, maxRateBps: 1.2e9,
		antennaGaindBi: 90,
		rainK:          0.2403, rainAlpha: 0.9485, gasdBPerKm: 0.030,
		weatherSensitivity: 0.90, powerCost: 3.5, latencyFloor: 100 * time.Millisecond,
	},
}

// MaxRateBps returns the modem ceiling for this band.
func (b Band) MaxRateBps() float64 { return bandTable[b].maxRateBps }

// PowerCost returns the relative transmit power cost of this band.
func (b Band) PowerCost() float64 { return bandTable[b].powerCost }

// LatencyFloor returns the hardware settling time when switching to b.
func (b Band) LatencyFloor() time.Duration { return bandTable[b].latencyFloor }

// PreferredFor is the static band hint for a priority tier: real-time traffic
// prefers robust low bands, bulk traffic prefers high-throughput bands.
func PreferredFor(p message.Priority) Band {
	switch p {
	case message.Emergency:
		return UHF
	case message.Critical:
		return S
	case message.High, message.Medium:
		return X
	default:
		return Ka
	}
}

// Conditions describe the weather over the ground station.
type Conditions struct {
	RainRateMmH   float64
	HumidityPct   float64
	TempC         float64
	CloudCoverPct float64
}

// Severity collapses conditions into one 0..1 figure. Rain dominates; cloud
// cover and excess humidity contribute smaller shares.
func (c Conditions) Severity() float64 {
	rain := clamp01(c.RainRateMmH / 50.0)
	cloud := clamp01(c.CloudCoverPct / 100.0)
	humid := clamp01((c.HumidityPct - 40.0) / 60.0)
	return rain*0.6 + cloud*0.25 + humid*0.15
}

// Regime is the coarse weather bucket used to key reliability history.
type Regime uint8

const (
	RegimeClear Regime = iota
	RegimeDegraded
	RegimeSevere
)

func (r Regime) String() string {
	switch r {
	case RegimeClear:
		return "clear"
	case RegimeDegraded:
		return "degraded"
	default:
		return "severe"
	}
}

// Bucket maps conditions to their regime.
func (c Conditions) Bucket() Regime {
	switch sev := c.Severity(); {
	case sev < 0.2:
		return RegimeClear
	case sev < 0.5:
		return RegimeDegraded
	default:
		return RegimeSevere
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
