package models

import "time"

// Regime labels the classified market condition for an asset.
type Regime string

const (
	RegimeTrending Regime = "TRENDING"
	RegimeRanging  Regime = "RANGING"
	RegimeVolatile Regime = "VOLATILE"
	RegimeUnknown  Regime = "UNKNOWN"
)

// NormalizeRegime maps a raw classifier label onto a known regime.
func NormalizeRegime(s string) Regime {
	switch Regime(s) {
	case RegimeTrending, RegimeRanging, RegimeVolatile:
		return Regime(s)
	default:
		return RegimeUnknown
	}
}

// RegimeState is the classifier's output for one asset in one scan.
// Read-only input to this core.
type RegimeState struct {
	Asset      string
	Regime     Regime
	Confidence float64
	Timestamp  time.Time
}
