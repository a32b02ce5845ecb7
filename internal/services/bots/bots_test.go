package bots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/pkg/config"
)

func candleSeries(n int, close func(i int) float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := close(i)
		out[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Asset:  "BTCUSDT",
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}
	return out
}

func snapshot(candles []models.Candle, atr float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Asset:        "BTCUSDT",
		CurrentPrice: candles[len(candles)-1].Close,
		ATR:          atr,
		Candles:      candles,
		Timestamp:    time.Now(),
	}
}

func TestMomentumBotUptrend(t *testing.T) {
	b := NewMomentumBot("momentum", 5, 20)
	candles := candleSeries(40, func(i int) float64 { return 100 + float64(i) })

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionLong {
		t.Fatalf("expected LONG in an uptrend, got %+v", p)
	}
	if p.RawConfidence <= models.RawConfidenceMidpoint {
		t.Fatalf("expected above-midpoint confidence, got %f", p.RawConfidence)
	}
	if !p.HasLevels() || p.TakeProfit <= p.Entry || p.StopLoss >= p.Entry {
		t.Fatalf("bad levels: %+v", p)
	}
}

func TestMomentumBotFlatIsNeutral(t *testing.T) {
	b := NewMomentumBot("momentum", 5, 20)
	candles := candleSeries(40, func(int) float64 { return 100 })

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionNeutral {
		t.Fatalf("expected NEUTRAL on a flat tape, got %+v", p)
	}
}

func TestMomentumBotAbstainsOnShortHistory(t *testing.T) {
	b := NewMomentumBot("momentum", 5, 20)
	candles := candleSeries(10, func(i int) float64 { return 100 + float64(i) })

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 2))
	if err != nil || p != nil {
		t.Fatalf("expected abstention, got p=%v err=%v", p, err)
	}
}

func TestMeanReversionBotFadesSpike(t *testing.T) {
	b := NewMeanReversionBot("meanrev")
	// Flat at 100 with a little noise, then a spike.
	candles := candleSeries(30, func(i int) float64 {
		if i == 29 {
			return 110
		}
		if i%2 == 0 {
			return 100.5
		}
		return 99.5
	})

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 1))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionShort {
		t.Fatalf("expected SHORT on an upside spike, got %+v", p)
	}
	if p.TakeProfit >= p.Entry || p.StopLoss <= p.Entry {
		t.Fatalf("short levels on wrong side: %+v", p)
	}
}

func TestMeanReversionBotAbstainsNearMean(t *testing.T) {
	b := NewMeanReversionBot("meanrev")
	candles := candleSeries(30, func(i int) float64 {
		if i%2 == 0 {
			return 100.5
		}
		return 99.5
	})

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 1))
	if err != nil || p != nil {
		t.Fatalf("expected abstention near the mean, got p=%v err=%v", p, err)
	}
}

func TestBreakoutBotNewHigh(t *testing.T) {
	b := NewBreakoutBot("breakout")
	candles := candleSeries(60, func(i int) float64 {
		if i == 59 {
			return 110 // clears the prior channel high of ~101
		}
		return 100
	})

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionLong {
		t.Fatalf("expected LONG on a channel break, got %+v", p)
	}
}

func TestBreakoutBotInsideChannelAbstains(t *testing.T) {
	b := NewBreakoutBot("breakout")
	candles := candleSeries(60, func(int) float64 { return 100 })

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 2))
	if err != nil || p != nil {
		t.Fatalf("expected abstention inside the channel, got p=%v err=%v", p, err)
	}
}

func TestRemoteModelBot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/edge/predict" {
			http.NotFound(w, r)
			return
		}
		var req edgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Asset != "BTCUSDT" || len(req.Returns) == 0 {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(edgeResponse{ProbaUp: 0.8, Confidence: 0.7})
	}))
	defer srv.Close()

	b := NewRemoteModelBot("edge-model", srv.URL, time.Second)
	candles := candleSeries(40, func(i int) float64 { return 100 + float64(i)*0.1 })

	p, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 1))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if p == nil || p.Direction != models.DirectionLong {
		t.Fatalf("expected LONG at proba_up 0.8, got %+v", p)
	}
	if p.RawConfidence != 7 {
		t.Fatalf("expected raw confidence 7, got %f", p.RawConfidence)
	}
}

func TestRemoteModelBotErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewRemoteModelBot("edge-model", srv.URL, time.Second)
	candles := candleSeries(10, func(i int) float64 { return 100 + float64(i) })

	if _, err := b.Evaluate(context.Background(), "BTCUSDT", snapshot(candles, 1)); err == nil {
		t.Fatal("expected error when the model service fails")
	}
}

func TestRosterComposition(t *testing.T) {
	cfg := &config.Config{}
	if got := len(Roster(cfg)); got != 4 {
		t.Fatalf("expected 4 local bots, got %d", got)
	}
	cfg.Bots.ModelServiceURL = "http://localhost:9000"
	if got := len(Roster(cfg)); got != 5 {
		t.Fatalf("expected 5 bots with a model service, got %d", got)
	}
}
