package levels

import (
	"fmt"
	"math"
	"sort"

	"SigCouncil/internal/domain/models"
)

// Defaults for the bot-level consensus path.
const (
	DefaultTrimFraction = 0.15
	DefaultMinProposals = 3
)

// atrMultipliers is the regime-indexed fallback table. Trending markets get
// room to run with a tight stop; volatile markets get the opposite.
var atrMultipliers = map[models.Regime]struct{ tp, sl float64 }{
	models.RegimeTrending: {tp: 3.0, sl: 1.0},
	models.RegimeVolatile: {tp: 1.5, sl: 2.0},
	models.RegimeRanging:  {tp: 2.0, sl: 1.5},
	models.RegimeUnknown:  {tp: 1.5, sl: 1.5},
}

// Levels is the synthesized entry/TP/SL triple.
type Levels struct {
	Entry      float64
	TakeProfit float64
	StopLoss   float64
	Method     models.SynthesisMethod
}

// Synthesizer derives final target and stop levels from bot proposals, with a
// pure-ATR fallback when too few bots proposed levels.
type Synthesizer struct {
	trimFraction float64
	minProposals int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTrimFraction sets the share trimmed from each end of the proposal
// distribution. Values outside [0, 0.4] fall back to the default.
func WithTrimFraction(f float64) Option {
	return func(s *Synthesizer) {
		if f >= 0 && f <= 0.4 {
			s.trimFraction = f
		}
	}
}

// WithMinProposals sets how many bot level proposals the consensus path needs.
func WithMinProposals(n int) Option {
	return func(s *Synthesizer) {
		if n >= 1 {
			s.minProposals = n
		}
	}
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		trimFraction: DefaultTrimFraction,
		minProposals: DefaultMinProposals,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize produces final levels for the winning direction. Bot proposals
// for other directions must be filtered out by the caller. Violating the
// LONG/SHORT ordering invariant yields ErrInvalidLevels and no levels; the
// recommendation is suppressed rather than emitted with contradictory levels.
func (s *Synthesizer) Synthesize(
	dir models.Direction,
	proposals []*models.BotPrediction,
	currentPrice, atr float64,
	regime models.Regime,
) (*Levels, error) {
	if dir == models.DirectionNeutral {
		return nil, fmt.Errorf("no levels for neutral consensus: %w", models.ErrInvalidInput)
	}
	if currentPrice <= 0 {
		return nil, fmt.Errorf("current price %v: %w", currentPrice, models.ErrInvalidInput)
	}

	withLevels := make([]*models.BotPrediction, 0, len(proposals))
	for _, p := range proposals {
		if p != nil && p.HasLevels() {
			withLevels = append(withLevels, p)
		}
	}

	var lv *Levels
	if len(withLevels) >= s.minProposals {
		lv = s.fromProposals(dir, withLevels, currentPrice)
	} else {
		lv = s.fromATR(dir, currentPrice, atr, regime)
	}

	if err := checkOrdering(dir, lv); err != nil {
		return nil, err
	}
	return lv, nil
}

// fromProposals takes a trimmed mean of TP and SL offsets relative to the
// current price, suppressing outlier bots at both ends.
func (s *Synthesizer) fromProposals(dir models.Direction, proposals []*models.BotPrediction, price float64) *Levels {
	tpOffsets := make([]float64, 0, len(proposals))
	slOffsets := make([]float64, 0, len(proposals))
	for _, p := range proposals {
		tpOffsets = append(tpOffsets, p.TakeProfit-price)
		slOffsets = append(slOffsets, p.StopLoss-price)
	}

	return &Levels{
		Entry:      price,
		TakeProfit: price + trimmedMean(tpOffsets, s.trimFraction),
		StopLoss:   price + trimmedMean(slOffsets, s.trimFraction),
		Method:     models.SynthesisBotLevels,
	}
}

// fromATR derives levels purely from volatility via the regime table.
func (s *Synthesizer) fromATR(dir models.Direction, price, atr float64, regime models.Regime) *Levels {
	m, ok := atrMultipliers[regime]
	if !ok {
		m = atrMultipliers[models.RegimeUnknown]
	}

	lv := &Levels{Entry: price, Method: models.SynthesisATRFallback}
	if dir == models.DirectionLong {
		lv.TakeProfit = price + atr*m.tp
		lv.StopLoss = price - atr*m.sl
	} else {
		lv.TakeProfit = price - atr*m.tp
		lv.StopLoss = price + atr*m.sl
	}
	return lv
}

// checkOrdering enforces LONG: TP > entry > SL and SHORT: SL > entry > TP.
func checkOrdering(dir models.Direction, lv *Levels) error {
	ok := false
	switch dir {
	case models.DirectionLong:
		ok = lv.TakeProfit > lv.Entry && lv.Entry > lv.StopLoss
	case models.DirectionShort:
		ok = lv.StopLoss > lv.Entry && lv.Entry > lv.TakeProfit
	}
	if !ok {
		return fmt.Errorf("%s entry=%v tp=%v sl=%v: %w",
			dir, lv.Entry, lv.TakeProfit, lv.StopLoss, models.ErrInvalidLevels)
	}
	return nil
}

// trimmedMean discards the bottom and top frac share of xs and averages the
// rest. With too few samples to trim it degenerates to a plain mean.
func trimmedMean(xs []float64, frac float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	k := int(math.Floor(float64(len(sorted)) * frac))
	if 2*k >= len(sorted) {
		k = 0
	}
	trimmed := sorted[k : len(sorted)-k]

	sum := 0.0
	for _, x := range trimmed {
		sum += x
	}
	return sum / float64(len(trimmed))
}
