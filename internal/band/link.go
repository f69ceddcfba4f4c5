package band

import "math"

// Link geometry and radio constants for the LEO ground link.
const (
	txPowerdBm = 40.0 // 10 W
	slantKm    = 550.0
	// rain and gas only act over the troposphere slice of the slant path
	weatherPathKm = 5.0
	noiseFiguredB = 5.0
	// thermal noise density at 290 K
	noiseDensitydBmHz = -174.0
)

// LinkBudget is the physical estimate for one band under given conditions.
type LinkBudget struct {
	PathLossdB  float64
	RainLossdB  float64
	GasLossdB   float64
	SNRdB       float64
	CapacityBps float64
	// AchievableBps is capacity clamped to the band's modem ceiling.
	AchievableBps float64
}

// Budget computes the link budget for b under the given conditions.
//
// Free-space path loss follows Friis, rain attenuation the k*R^alpha power
// law at the band's center frequency, and capacity the Shannon bound over the
// band's allocated bandwidth.
func Budget(b Band, c Conditions) LinkBudget {
	ch := bandTable[b]

	fspl := 20*math.Log10(slantKm) + 20*math.Log10(ch.centerGHz) + 92.45

	rain := 0.0
	if c.RainRateMmH > 0 {
		rain = ch.rainK * math.Pow(c.RainRateMmH, ch.rainAlpha) * weatherPathKm
	}

	// Water vapor absorption scales with humidity; a dry-air floor remains.
	gas := ch.gasdBPerKm * weatherPathKm * (0.3 + 0.7*clamp01(c.HumidityPct/100.0))

	received := txPowerdBm + ch.antennaGaindBi - fspl - rain - gas
	noise := noiseDensitydBmHz + 10*math.Log10(ch.bandwidthHz) + noiseFiguredB
	snr := received - noise

	capacity := ch.bandwidthHz * math.Log2(1+math.Pow(10, snr/10))

	return LinkBudget{
		PathLossdB:    fspl,
		RainLossdB:    rain,
		GasLossdB:     gas,
		SNRdB:         snr,
		CapacityBps:   capacity,
		AchievableBps: math.Min(capacity, ch.maxRateBps),
	}
}

// qualityFactor degrades 0..1 with condition severity, weighted by how
// weather-sensitive the band is.
func qualityFactor(b Band, c Conditions) float64 {
	return 1 - bandTable[b].weatherSensitivity*c.Severity()
}
