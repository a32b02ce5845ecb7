package calibrate

import (
	"fmt"
	"math"

	"SigCouncil/internal/domain/models"
)

// Calibrator maps a bot's raw confidence onto a calibrated probability using
// a Platt-style logistic transform: p = sigmoid(A + B*(raw - midpoint)).
// B must be positive so the mapping stays monotonic in raw confidence.
type Calibrator struct {
	a        float64
	b        float64
	scaleMin float64
	scaleMax float64
	midpoint float64
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithParams sets the fitted logistic parameters.
func WithParams(a, b float64) Option {
	return func(c *Calibrator) {
		c.a = a
		c.b = b
	}
}

// WithScale sets the declared raw confidence scale.
func WithScale(min, max, midpoint float64) Option {
	return func(c *Calibrator) {
		c.scaleMin = min
		c.scaleMax = max
		c.midpoint = midpoint
	}
}

// New creates a Calibrator on the default bot scale. Returns an error rather
// than a panicking calibrator when B is non-positive, since a non-monotonic
// transform would silently invert bot opinions.
func New(opts ...Option) (*Calibrator, error) {
	c := &Calibrator{
		a:        0,
		b:        0.8,
		scaleMin: models.RawConfidenceMin,
		scaleMax: models.RawConfidenceMax,
		midpoint: models.RawConfidenceMidpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.b <= 0 {
		return nil, fmt.Errorf("calibrator: B must be positive, got %v", c.b)
	}
	if c.scaleMax <= c.scaleMin {
		return nil, fmt.Errorf("calibrator: bad scale [%v, %v]", c.scaleMin, c.scaleMax)
	}
	return c, nil
}

// Calibrate converts a raw confidence on the declared scale to a probability
// in (0,1). Raw values outside the scale are rejected, not clamped.
func (c *Calibrator) Calibrate(raw float64) (float64, error) {
	if math.IsNaN(raw) || raw < c.scaleMin || raw > c.scaleMax {
		return 0, fmt.Errorf("raw confidence %v outside [%v, %v]: %w",
			raw, c.scaleMin, c.scaleMax, models.ErrInvalidInput)
	}
	return Sigmoid(c.a + c.b*(raw-c.midpoint)), nil
}

// CalibrateLogOdds returns the calibrated probability directly in log-odds
// space, where independent evidence combines additively.
func (c *Calibrator) CalibrateLogOdds(raw float64) (float64, error) {
	p, err := c.Calibrate(raw)
	if err != nil {
		return 0, err
	}
	return Logit(p), nil
}

// Sigmoid is the standard logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Logit is the inverse of Sigmoid. Input is clamped away from 0 and 1 so a
// perfectly confident bot cannot produce an infinite log-odds term.
func Logit(p float64) float64 {
	const eps = 1e-9
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return math.Log(p / (1 - p))
}
