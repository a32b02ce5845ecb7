package consensus

import (
	"math"

	"SigCouncil/internal/domain/models"
)

// DefaultDisagreementAlpha is the maximum confidence haircut at full split.
const DefaultDisagreementAlpha = 0.3

// DisagreementAnalyzer turns the spread of directional votes into a
// consensus-strength multiplier. It is applied once to the aggregate
// confidence, never to individual bot confidences.
type DisagreementAnalyzer struct {
	alpha float64
}

// NewDisagreementAnalyzer creates an analyzer. Alpha outside (0,1] falls back
// to the default.
func NewDisagreementAnalyzer(alpha float64) *DisagreementAnalyzer {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultDisagreementAlpha
	}
	return &DisagreementAnalyzer{alpha: alpha}
}

// Multiplier computes m = 1 - alpha*Hnorm over the observed directions only.
// Abstentions never reach this function. Entropy is normalized by log2(k)
// where k is the number of distinct directions observed; a single observed
// direction means zero entropy by definition, no division. The result is
// clamped to [1-alpha, 1].
func (d *DisagreementAnalyzer) Multiplier(votes []models.Direction) float64 {
	if len(votes) == 0 {
		return 1.0
	}

	counts := make(map[models.Direction]int, 3)
	for _, v := range votes {
		counts[v]++
	}
	k := len(counts)
	if k <= 1 {
		return 1.0
	}

	total := float64(len(votes))
	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	norm := entropy / math.Log2(float64(k))

	m := 1.0 - d.alpha*norm
	if m < 1.0-d.alpha {
		m = 1.0 - d.alpha
	}
	if m > 1.0 {
		m = 1.0
	}
	return m
}

// Alpha returns the configured haircut constant.
func (d *DisagreementAnalyzer) Alpha() float64 { return d.alpha }
