package bots

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"SigCouncil/internal/domain/models"
	domsvc "SigCouncil/internal/domain/service"
)

// MomentumBot votes with the trend. It compares a fast and a slow moving
// average of closes and sizes its raw confidence by the gap between them,
// normalized by ATR so the score is comparable across assets.
type MomentumBot struct {
	id      string
	fast    int
	slow    int
	tpMult  float64
	slMult  float64
	counter atomic.Uint64
}

func NewMomentumBot(id string, fast, slow int) *MomentumBot {
	if fast <= 0 {
		fast = 9
	}
	if slow <= fast {
		slow = fast * 3
	}
	return &MomentumBot{id: id, fast: fast, slow: slow, tpMult: 2.5, slMult: 1.25}
}

func (b *MomentumBot) ID() string { return b.id }

func (b *MomentumBot) Evaluate(_ context.Context, asset string, market *models.MarketSnapshot) (*models.BotPrediction, error) {
	if market == nil || len(market.Candles) < b.slow {
		return nil, nil
	}

	fast := smaClose(market.Candles, b.fast)
	slow := smaClose(market.Candles, b.slow)
	if slow <= 0 {
		return nil, nil
	}

	gap := fast - slow
	scale := market.ATR
	if scale <= 0 {
		scale = slow * 0.005
	}
	strength := math.Abs(gap) / scale // in ATR units

	var dir models.Direction
	switch {
	case strength < 0.1:
		dir = models.DirectionNeutral
	case gap > 0:
		dir = models.DirectionLong
	default:
		dir = models.DirectionShort
	}

	p := &models.BotPrediction{
		ID:            b.nextID(asset),
		BotID:         b.id,
		Asset:         asset,
		Direction:     dir,
		RawConfidence: clampRaw(models.RawConfidenceMidpoint + strength*2),
		Entry:         market.CurrentPrice,
		Timestamp:     time.Now(),
	}
	if dir == models.DirectionLong && market.ATR > 0 {
		p.TakeProfit = market.CurrentPrice + b.tpMult*market.ATR
		p.StopLoss = market.CurrentPrice - b.slMult*market.ATR
	}
	if dir == models.DirectionShort && market.ATR > 0 {
		p.TakeProfit = market.CurrentPrice - b.tpMult*market.ATR
		p.StopLoss = market.CurrentPrice + b.slMult*market.ATR
	}
	return p, nil
}

func (b *MomentumBot) nextID(asset string) string {
	return fmt.Sprintf("%s-%s-%d-%d", b.id, asset, time.Now().UnixNano(), b.counter.Add(1))
}

func smaClose(candles []models.Candle, n int) float64 {
	if n <= 0 || len(candles) < n {
		return 0
	}
	var sum float64
	for _, c := range candles[len(candles)-n:] {
		sum += c.Close
	}
	return sum / float64(n)
}

func clampRaw(v float64) float64 {
	if v < models.RawConfidenceMin {
		return models.RawConfidenceMin
	}
	if v > models.RawConfidenceMax {
		return models.RawConfidenceMax
	}
	return v
}

var _ domsvc.BotEvaluator = (*MomentumBot)(nil)
