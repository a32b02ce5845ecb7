package models

import "time"

// Direction is a bot's directional opinion for one asset.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// IsValidDirection returns true if d is a supported direction.
func IsValidDirection(d Direction) bool {
	switch d {
	case DirectionLong, DirectionShort, DirectionNeutral:
		return true
	default:
		return false
	}
}

// Raw confidence scale emitted by bots. The calibrator maps this onto (0,1).
const (
	RawConfidenceMin      = 0.0
	RawConfidenceMax      = 10.0
	RawConfidenceMidpoint = 5.0
)

// BotPrediction is a single bot's opinion for one asset in one scan.
// Immutable once emitted; owned by the scan that produced it.
type BotPrediction struct {
	ID            string // unique per prediction, assigned at emission
	BotID         string
	Asset         string
	Direction     Direction
	RawConfidence float64 // on [RawConfidenceMin, RawConfidenceMax]
	Entry         float64
	TakeProfit    float64 // 0 = no proposal
	StopLoss      float64 // 0 = no proposal
	Leverage      float64
	Timestamp     time.Time
}

// HasLevels reports whether the bot proposed both a take-profit and a stop.
func (p *BotPrediction) HasLevels() bool {
	return p.TakeProfit > 0 && p.StopLoss > 0
}

// Validate checks structural validity. Range checks on RawConfidence belong to
// the calibrator, which owns the scale.
func (p *BotPrediction) Validate() error {
	if p.BotID == "" {
		return ErrInvalidInput
	}
	if p.Asset == "" {
		return ErrInvalidInput
	}
	if !IsValidDirection(p.Direction) {
		return ErrInvalidInput
	}
	return nil
}
