package models

import "time"

// DefaultBotWeight is assigned to bots that have no optimizer history yet.
const DefaultBotWeight = 1.0

// WeightSnapshot is an immutable, versioned set of per-bot influence weights.
// The optimizer publishes a new snapshot between scans; a scan reads exactly
// one snapshot and uses it unchanged throughout. Weights are >= 0; a weight of
// 0 excludes the bot from aggregation without deleting its history.
type WeightSnapshot struct {
	Version   uint64             `json:"version"`
	Weights   map[string]float64 `json:"weights"`
	CreatedAt time.Time          `json:"created_at"`
}

// Weight returns the bot's weight, or DefaultBotWeight for bots the optimizer
// has not seen yet.
func (s *WeightSnapshot) Weight(botID string) float64 {
	if s == nil || s.Weights == nil {
		return DefaultBotWeight
	}
	if w, ok := s.Weights[botID]; ok {
		return w
	}
	return DefaultBotWeight
}

// RLWeightState is the optimizer's per-(regime, confidence bucket, bot) reward
// estimate. Created lazily on first observation; decayed, never deleted.
type RLWeightState struct {
	Key      string  `json:"key"`
	Estimate float64 `json:"estimate"`
	Updates  uint64  `json:"updates"`
}
