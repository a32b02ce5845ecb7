package consensus

import (
	"errors"
	"math"
	"testing"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/services/calibrate"
)

func opinion(botID string, dir models.Direction, logOdds, weight float64) Opinion {
	return Opinion{
		Prediction: &models.BotPrediction{BotID: botID, Asset: "BTCUSDT", Direction: dir},
		LogOdds:    logOdds,
		Weight:     weight,
	}
}

func TestAggregateQuorumNotMet(t *testing.T) {
	a := NewAggregator(3, NewDisagreementAnalyzer(0.3))
	ops := []Opinion{
		opinion("b1", models.DirectionLong, 1.0, 1.0),
		opinion("b2", models.DirectionLong, 1.0, 1.0),
	}
	if _, err := a.Aggregate(ops); !errors.Is(err, models.ErrQuorumNotMet) {
		t.Fatalf("expected ErrQuorumNotMet, got %v", err)
	}
}

func TestAggregateEmpty(t *testing.T) {
	a := NewAggregator(1, nil)
	if _, err := a.Aggregate(nil); !errors.Is(err, models.ErrQuorumNotMet) {
		t.Fatalf("zero participants must never emit a consensus, got %v", err)
	}
}

func TestAggregateZeroWeightExcluded(t *testing.T) {
	a := NewAggregator(1, NewDisagreementAnalyzer(0.3))
	ops := []Opinion{
		opinion("live", models.DirectionLong, 1.0, 1.0),
		// retired bot screaming SHORT must contribute nothing
		opinion("retired", models.DirectionShort, 5.0, 0.0),
	}
	c, err := a.Aggregate(ops)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if c.Direction != models.DirectionLong {
		t.Fatalf("expected LONG, got %s", c.Direction)
	}
	if c.BotCount != 1 {
		t.Fatalf("expected 1 voting bot, got %d", c.BotCount)
	}
	if c.Disagreement != 1.0 {
		t.Fatalf("zero-weight bot must not count as disagreement, got %v", c.Disagreement)
	}
}

func TestAggregateTieYieldsNeutral(t *testing.T) {
	a := NewAggregator(1, NewDisagreementAnalyzer(0.3))
	ops := []Opinion{
		opinion("b1", models.DirectionLong, 1.5, 1.0),
		opinion("b2", models.DirectionShort, 1.5, 1.0),
	}
	c, err := a.Aggregate(ops)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if c.Direction != models.DirectionNeutral {
		t.Fatalf("tie must resolve to NEUTRAL, got %s", c.Direction)
	}
	if c.Confidence != 0 {
		t.Fatalf("tie confidence must be 0, got %v", c.Confidence)
	}
}

func TestAggregateUnanimousLong(t *testing.T) {
	// Ten bots vote LONG; combined log-odds chosen so the final confidence is
	// 0.78 with no disagreement haircut.
	a := NewAggregator(1, NewDisagreementAnalyzer(0.3))
	target := calibrate.Logit(0.78)
	perBot := target / 10.0

	ops := make([]Opinion, 0, 10)
	for i := 0; i < 10; i++ {
		ops = append(ops, opinion("bot", models.DirectionLong, perBot, 1.0))
	}

	c, err := a.Aggregate(ops)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if c.Direction != models.DirectionLong {
		t.Fatalf("expected LONG, got %s", c.Direction)
	}
	if c.Disagreement != 1.0 {
		t.Fatalf("expected multiplier 1.0, got %v", c.Disagreement)
	}
	if math.Abs(c.Confidence-0.78) > 1e-9 {
		t.Fatalf("expected confidence 0.78, got %v", c.Confidence)
	}
	if c.BotCount != 10 {
		t.Fatalf("expected 10 bots, got %d", c.BotCount)
	}
}

func TestAggregateEvenSplitNeutralZero(t *testing.T) {
	// Five LONG vs five SHORT at equal confidence: max entropy, multiplier
	// 0.7, and the weighted sums tie exactly, so NEUTRAL at 0.
	a := NewAggregator(1, NewDisagreementAnalyzer(0.3))
	ops := make([]Opinion, 0, 10)
	for i := 0; i < 5; i++ {
		ops = append(ops, opinion("l", models.DirectionLong, 0.9, 1.0))
		ops = append(ops, opinion("s", models.DirectionShort, 0.9, 1.0))
	}
	c, err := a.Aggregate(ops)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if math.Abs(c.Disagreement-0.7) > 1e-12 {
		t.Fatalf("expected multiplier 0.7, got %v", c.Disagreement)
	}
	if c.Direction != models.DirectionNeutral || c.Confidence != 0 {
		t.Fatalf("expected NEUTRAL/0, got %s/%v", c.Direction, c.Confidence)
	}
}

func TestAggregateWeightBreaksSymmetry(t *testing.T) {
	a := NewAggregator(1, NewDisagreementAnalyzer(0.3))
	ops := []Opinion{
		opinion("heavy", models.DirectionShort, 1.0, 2.0),
		opinion("light", models.DirectionLong, 1.0, 1.0),
	}
	c, err := a.Aggregate(ops)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if c.Direction != models.DirectionShort {
		t.Fatalf("heavier bot should win, got %s", c.Direction)
	}
}
