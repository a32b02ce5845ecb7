package models

import "time"

// BotStatus is a bot's lifecycle state, evaluated only by the tracker.
type BotStatus string

const (
	StatusNew        BotStatus = "NEW"        // fewer than MinTrackedPredictions outcomes
	StatusActive     BotStatus = "ACTIVE"     // rolling accuracy >= 60%
	StatusMonitoring BotStatus = "MONITORING" // 40-60%
	StatusProbation  BotStatus = "PROBATION"  // 25-40%
	StatusRetired    BotStatus = "RETIRED"    // < 25%; weight forced to 0
)

// Lifecycle thresholds on rolling accuracy. A bot moves directly between any
// two states when its accuracy is recomputed on outcome arrival.
const (
	MinTrackedPredictions = 10
	ActiveThreshold       = 0.60
	MonitoringThreshold   = 0.40
	ProbationThreshold    = 0.25
)

// BotPerformance is the tracked accuracy record for one bot. Updated only by
// the performance tracker on outcome arrival; never mutated by the aggregator.
type BotPerformance struct {
	BotID           string    `json:"bot_id"`
	Total           int       `json:"total"`
	Successes       int       `json:"successes"`
	Failures        int       `json:"failures"`
	Pending         int       `json:"pending"`
	RollingAccuracy float64   `json:"rolling_accuracy"`
	Status          BotStatus `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}
