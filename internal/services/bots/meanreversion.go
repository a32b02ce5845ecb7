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

const (
	meanRevWindow    = 20
	meanRevEntryZ    = 2.0
	meanRevMinStddev = 1e-9
)

// MeanReversionBot fades extremes. It z-scores the last close against a
// rolling window and only speaks up past two standard deviations; anything
// closer to the mean is an abstention, not a neutral vote.
type MeanReversionBot struct {
	id      string
	window  int
	counter atomic.Uint64
}

func NewMeanReversionBot(id string) *MeanReversionBot {
	return &MeanReversionBot{id: id, window: meanRevWindow}
}

func (b *MeanReversionBot) ID() string { return b.id }

func (b *MeanReversionBot) Evaluate(_ context.Context, asset string, market *models.MarketSnapshot) (*models.BotPrediction, error) {
	if market == nil || len(market.Candles) < b.window {
		return nil, nil
	}

	closes := market.Candles[len(market.Candles)-b.window:]
	var sum float64
	for _, c := range closes {
		sum += c.Close
	}
	mean := sum / float64(b.window)

	var varSum float64
	for _, c := range closes {
		d := c.Close - mean
		varSum += d * d
	}
	stddev := math.Sqrt(varSum / float64(b.window))
	if stddev < meanRevMinStddev {
		return nil, nil
	}

	z := (market.CurrentPrice - mean) / stddev
	if math.Abs(z) < meanRevEntryZ {
		return nil, nil
	}

	dir := models.DirectionShort // stretched above the mean
	if z < 0 {
		dir = models.DirectionLong
	}

	p := &models.BotPrediction{
		ID:            b.nextID(asset),
		BotID:         b.id,
		Asset:         asset,
		Direction:     dir,
		RawConfidence: clampRaw(math.Abs(z) * 2.5),
		Entry:         market.CurrentPrice,
		TakeProfit:    mean, // revert target
		Timestamp:     time.Now(),
	}
	if dir == models.DirectionShort {
		p.StopLoss = market.CurrentPrice + stddev
	} else {
		p.StopLoss = market.CurrentPrice - stddev
	}
	return p, nil
}

func (b *MeanReversionBot) nextID(asset string) string {
	return fmt.Sprintf("%s-%s-%d-%d", b.id, asset, time.Now().UnixNano(), b.counter.Add(1))
}

var _ domsvc.BotEvaluator = (*MeanReversionBot)(nil)
