package bots

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"SigCouncil/internal/domain/models"
	domsvc "SigCouncil/internal/domain/service"
)

const breakoutWindow = 55

// BreakoutBot trades channel breaks. A close beyond the prior window's
// high or low is a vote in that direction; inside the channel it abstains.
type BreakoutBot struct {
	id      string
	window  int
	counter atomic.Uint64
}

func NewBreakoutBot(id string) *BreakoutBot {
	return &BreakoutBot{id: id, window: breakoutWindow}
}

func (b *BreakoutBot) ID() string { return b.id }

func (b *BreakoutBot) Evaluate(_ context.Context, asset string, market *models.MarketSnapshot) (*models.BotPrediction, error) {
	if market == nil || len(market.Candles) < b.window+1 {
		return nil, nil
	}

	// Channel over the window excluding the latest candle.
	prior := market.Candles[len(market.Candles)-b.window-1 : len(market.Candles)-1]
	hi, lo := prior[0].High, prior[0].Low
	for _, c := range prior[1:] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}

	price := market.CurrentPrice
	var dir models.Direction
	var overshoot float64
	switch {
	case price > hi:
		dir = models.DirectionLong
		overshoot = price - hi
	case price < lo:
		dir = models.DirectionShort
		overshoot = lo - price
	default:
		return nil, nil
	}

	scale := market.ATR
	if scale <= 0 {
		scale = (hi - lo) / float64(b.window)
	}
	if scale <= 0 {
		return nil, nil
	}

	p := &models.BotPrediction{
		ID:            b.nextID(asset),
		BotID:         b.id,
		Asset:         asset,
		Direction:     dir,
		RawConfidence: clampRaw(models.RawConfidenceMidpoint + (overshoot/scale)*3),
		Entry:         price,
		Timestamp:     time.Now(),
	}
	if market.ATR > 0 {
		if dir == models.DirectionLong {
			p.TakeProfit = price + 3*market.ATR
			p.StopLoss = price - 1.5*market.ATR
		} else {
			p.TakeProfit = price - 3*market.ATR
			p.StopLoss = price + 1.5*market.ATR
		}
	}
	return p, nil
}

func (b *BreakoutBot) nextID(asset string) string {
	return fmt.Sprintf("%s-%s-%d-%d", b.id, asset, time.Now().UnixNano(), b.counter.Add(1))
}

var _ domsvc.BotEvaluator = (*BreakoutBot)(nil)
