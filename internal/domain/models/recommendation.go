package models

import "time"

// SynthesisMethod records how final TP/SL levels were produced.
type SynthesisMethod string

const (
	SynthesisBotLevels   SynthesisMethod = "BOT_LEVELS"   // trimmed mean of bot proposals
	SynthesisATRFallback SynthesisMethod = "ATR_FALLBACK" // regime-indexed ATR multipliers
)

// Recommendation is the combined, calibrated opinion for one asset in one
// scan. Created once, immutable after creation; history is append-only.
type Recommendation struct {
	Asset           string
	ScanID          string
	Direction       Direction
	Confidence      float64 // calibrated, in [0,1], disagreement already applied
	Entry           float64
	TakeProfit      float64
	StopLoss        float64
	BotCount        int     // bots that actually contributed a vote
	Disagreement    float64 // multiplier that was applied
	Method          SynthesisMethod
	SnapshotVersion uint64 // weight snapshot the scan read
	CreatedAt       time.Time
}
