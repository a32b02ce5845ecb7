package consensus

import (
	"math"
	"testing"

	"SigCouncil/internal/domain/models"
)

func TestMultiplierAllAgree(t *testing.T) {
	d := NewDisagreementAnalyzer(0.3)
	votes := []models.Direction{
		models.DirectionLong, models.DirectionLong, models.DirectionLong,
	}
	if m := d.Multiplier(votes); m != 1.0 {
		t.Fatalf("expected 1.0 for unanimous votes, got %v", m)
	}
}

func TestMultiplierMaxEntropyTwoWay(t *testing.T) {
	d := NewDisagreementAnalyzer(0.3)
	votes := []models.Direction{
		models.DirectionLong, models.DirectionLong,
		models.DirectionShort, models.DirectionShort,
	}
	m := d.Multiplier(votes)
	if math.Abs(m-0.7) > 1e-12 {
		t.Fatalf("expected 0.7 at max two-way entropy, got %v", m)
	}
}

func TestMultiplierBounds(t *testing.T) {
	d := NewDisagreementAnalyzer(0.3)
	cases := [][]models.Direction{
		{models.DirectionLong},
		{models.DirectionLong, models.DirectionShort},
		{models.DirectionLong, models.DirectionShort, models.DirectionNeutral},
		{models.DirectionLong, models.DirectionLong, models.DirectionShort},
		{},
	}
	for i, votes := range cases {
		m := d.Multiplier(votes)
		if m < 0.7 || m > 1.0 {
			t.Fatalf("case %d: multiplier %v outside [0.7, 1.0]", i, m)
		}
	}
}

func TestMultiplierThreeWaySplit(t *testing.T) {
	d := NewDisagreementAnalyzer(0.3)
	votes := []models.Direction{
		models.DirectionLong, models.DirectionShort, models.DirectionNeutral,
	}
	// uniform over three observed directions: Hnorm = 1 by normalization
	m := d.Multiplier(votes)
	if math.Abs(m-0.7) > 1e-12 {
		t.Fatalf("expected 0.7 for uniform three-way split, got %v", m)
	}
}

func TestMultiplierSkewedSplit(t *testing.T) {
	d := NewDisagreementAnalyzer(0.3)
	votes := []models.Direction{
		models.DirectionLong, models.DirectionLong, models.DirectionLong,
		models.DirectionShort,
	}
	m := d.Multiplier(votes)
	if m <= 0.7 || m >= 1.0 {
		t.Fatalf("skewed split should land strictly between bounds, got %v", m)
	}
}

func TestNewDisagreementAnalyzerBadAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.5, 1.5} {
		d := NewDisagreementAnalyzer(alpha)
		if d.Alpha() != DefaultDisagreementAlpha {
			t.Fatalf("alpha=%v: expected default, got %v", alpha, d.Alpha())
		}
	}
}
