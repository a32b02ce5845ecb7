package models

import "time"

// Outcome classifies how a prediction resolved.
type Outcome string

const (
	OutcomeTPHit   Outcome = "TP_HIT"
	OutcomeSLHit   Outcome = "SL_HIT"
	OutcomeExpired Outcome = "EXPIRED"
)

// OutcomeEvent reports the resolution of one prediction. At most one event is
// ever recorded per prediction; replays are no-ops in the tracker.
type OutcomeEvent struct {
	BotID         string
	PredictionID  string
	Asset         string
	Outcome       Outcome
	RealizedPrice float64
	// Magnitude is the realized move relative to entry, always >= 0. It scales
	// the optimizer's reward.
	Magnitude  float64
	Regime     Regime // regime under which the prediction was made
	Confidence float64
	DetectedAt time.Time
}
