package bots

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"SigCouncil/internal/domain/models"
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/internal/services/features"
	xhttp "SigCouncil/pkg/http"
)

const (
	remoteLongThreshold  = 0.55
	remoteShortThreshold = 0.45
	remoteVolWindow      = 30
)

// RemoteModelBot delegates its opinion to an external scoring service. The
// service sees log returns and realized volatility and answers with an upward
// probability; the bot maps that onto a directional vote. Any transport or
// model failure surfaces as an error, which the scan treats as an abstention.
type RemoteModelBot struct {
	id      string
	baseURL string
	client  *xhttp.Client
	counter atomic.Uint64
}

func NewRemoteModelBot(id, baseURL string, timeout time.Duration) *RemoteModelBot {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RemoteModelBot{
		id:      id,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (b *RemoteModelBot) ID() string { return b.id }

type edgeRequest struct {
	Asset    string             `json:"asset"`
	Features map[string]float64 `json:"features"`
	Returns  []float64          `json:"returns"`
}

type edgeResponse struct {
	ProbaUp    float64 `json:"proba_up"`
	Confidence float64 `json:"confidence"`
}

func (b *RemoteModelBot) Evaluate(ctx context.Context, asset string, market *models.MarketSnapshot) (*models.BotPrediction, error) {
	if market == nil || len(market.Candles) < 2 {
		return nil, nil
	}

	returns := features.ComputeLogReturns(market.Candles)
	req := edgeRequest{
		Asset:   asset,
		Returns: returns,
		Features: map[string]float64{
			"atr":          market.ATR,
			"realized_vol": features.RealizedVolatility(returns, remoteVolWindow, 525600),
			"price":        market.CurrentPrice,
		},
	}

	var resp edgeResponse
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + "/edge/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("edge predict: %w", err)
	}

	dir := models.DirectionNeutral
	switch {
	case resp.ProbaUp > remoteLongThreshold:
		dir = models.DirectionLong
	case resp.ProbaUp < remoteShortThreshold:
		dir = models.DirectionShort
	}

	raw := resp.Confidence * models.RawConfidenceMax
	if resp.Confidence <= 0 {
		raw = clampRaw(models.RawConfidenceMidpoint + (resp.ProbaUp-0.5)*20)
	}

	return &models.BotPrediction{
		ID:            fmt.Sprintf("%s-%s-%d-%d", b.id, asset, time.Now().UnixNano(), b.counter.Add(1)),
		BotID:         b.id,
		Asset:         asset,
		Direction:     dir,
		RawConfidence: clampRaw(raw),
		Entry:         market.CurrentPrice,
		Timestamp:     time.Now(),
	}, nil
}

var _ domsvc.BotEvaluator = (*RemoteModelBot)(nil)
