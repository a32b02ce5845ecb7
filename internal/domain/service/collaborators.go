package service

import (
	"context"

	"SigCouncil/internal/domain/models"
)

// BotEvaluator is one strategy bot. Evaluate returns a prediction, or
// (nil, nil) to abstain, or an error which the scan also treats as abstention.
type BotEvaluator interface {
	ID() string
	Evaluate(ctx context.Context, asset string, market *models.MarketSnapshot) (*models.BotPrediction, error)
}

// MarketDataProvider delivers candles, indicators and the current price per
// asset. Implementations do the blocking I/O; the core never does.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, asset string) (*models.MarketSnapshot, error)
}

// RegimeClassifier labels the market condition for an asset.
type RegimeClassifier interface {
	Classify(ctx context.Context, asset string, returns []float64) (models.RegimeState, error)
}

// PriceSource exposes live prices for outcome detection.
type PriceSource interface {
	CurrentPrice(ctx context.Context, asset string) (float64, error)
}
