package consensus

import (
	"fmt"
	"math"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/services/calibrate"
)

// Opinion is one bot's calibrated, weight-resolved vote as the aggregator
// sees it. Weight has already been read from the scan's snapshot.
type Opinion struct {
	Prediction *models.BotPrediction
	LogOdds    float64
	Weight     float64
}

// Consensus is the aggregator's combined result for one asset.
type Consensus struct {
	Direction    models.Direction
	Confidence   float64 // disagreement multiplier already applied
	BotCount     int     // opinions that actually voted (weight > 0)
	Disagreement float64
}

// Aggregator combines calibrated bot opinions into one directional confidence.
type Aggregator struct {
	quorum       int
	disagreement *DisagreementAnalyzer
}

// NewAggregator creates an aggregator requiring at least quorum voting bots
// per asset. Quorum below 1 is raised to 1.
func NewAggregator(quorum int, d *DisagreementAnalyzer) *Aggregator {
	if quorum < 1 {
		quorum = 1
	}
	if d == nil {
		d = NewDisagreementAnalyzer(DefaultDisagreementAlpha)
	}
	return &Aggregator{quorum: quorum, disagreement: d}
}

// Aggregate combines opinions by weighted sum of calibrated log-odds per
// direction. Zero-weight bots (stale or retired) are ignored. The winning
// direction's summed log-odds converts back to probability via sigmoid, then
// the disagreement multiplier is applied once. An exact tie across directions
// resolves to NEUTRAL with confidence 0 rather than an arbitrary pick.
func (a *Aggregator) Aggregate(opinions []Opinion) (*Consensus, error) {
	sums := make(map[models.Direction]float64, 3)
	votes := make([]models.Direction, 0, len(opinions))

	for _, op := range opinions {
		if op.Prediction == nil || op.Weight <= 0 {
			continue
		}
		sums[op.Prediction.Direction] += op.Weight * op.LogOdds
		votes = append(votes, op.Prediction.Direction)
	}

	if len(votes) < a.quorum {
		return nil, fmt.Errorf("%d of %d bots voted: %w", len(votes), a.quorum, models.ErrQuorumNotMet)
	}

	winner, winSum, tied := pickWinner(sums)
	mult := a.disagreement.Multiplier(votes)

	if tied {
		return &Consensus{
			Direction:    models.DirectionNeutral,
			Confidence:   0,
			BotCount:     len(votes),
			Disagreement: mult,
		}, nil
	}

	conf := calibrate.Sigmoid(winSum) * mult
	return &Consensus{
		Direction:    winner,
		Confidence:   conf,
		BotCount:     len(votes),
		Disagreement: mult,
	}, nil
}

// pickWinner returns the direction with the largest weighted log-odds sum.
// Only directions that received votes participate. Equality within a small
// epsilon counts as a tie.
func pickWinner(sums map[models.Direction]float64) (models.Direction, float64, bool) {
	const eps = 1e-12

	var winner models.Direction
	best := math.Inf(-1)
	tied := false
	for dir, sum := range sums {
		switch {
		case sum > best+eps:
			winner, best, tied = dir, sum, false
		case math.Abs(sum-best) <= eps:
			tied = true
		}
	}
	return winner, best, tied
}
