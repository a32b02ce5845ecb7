package features

import (
	"math"
	"testing"

	"SigCouncil/internal/domain/models"
)

func candle(high, low, close float64) models.Candle {
	return models.Candle{Asset: "BTCUSDT", High: high, Low: low, Close: close}
}

func TestComputeLogReturns(t *testing.T) {
	candles := []models.Candle{
		candle(0, 0, 100),
		candle(0, 0, 110),
		candle(0, 0, 99),
	}
	rets := ComputeLogReturns(candles)
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", rets[0])
	}
}

func TestComputeLogReturnsInsufficientData(t *testing.T) {
	if rets := ComputeLogReturns([]models.Candle{candle(0, 0, 100)}); rets != nil {
		t.Fatalf("expected nil for single candle, got %v", rets)
	}
}

func TestComputeLogReturnsBadClose(t *testing.T) {
	candles := []models.Candle{
		candle(0, 0, 100),
		candle(0, 0, 0), // broken bar
		candle(0, 0, 100),
	}
	rets := ComputeLogReturns(candles)
	if rets[0] != 0 || rets[1] != 0 {
		t.Fatalf("broken bars must yield zero returns, got %v", rets)
	}
}

func TestComputeATRConstantRange(t *testing.T) {
	// Every bar has TR 2; Wilder smoothing of a constant is that constant.
	candles := make([]models.Candle, 0, 20)
	for i := 0; i < 20; i++ {
		candles = append(candles, candle(101, 99, 100))
	}
	atr := ComputeATR(candles, 14)
	if math.Abs(atr-2) > 1e-9 {
		t.Fatalf("expected ATR 2, got %v", atr)
	}
}

func TestComputeATRGapCountsAgainstPrevClose(t *testing.T) {
	candles := []models.Candle{
		candle(101, 99, 100),
		candle(121, 119, 120), // gap up: TR = high - prevClose = 21
	}
	atr := ComputeATR(candles, 1)
	if math.Abs(atr-21) > 1e-9 {
		t.Fatalf("expected gap TR 21, got %v", atr)
	}
}

func TestComputeATRInsufficientData(t *testing.T) {
	candles := []models.Candle{candle(101, 99, 100), candle(101, 99, 100)}
	if atr := ComputeATR(candles, 14); atr != 0 {
		t.Fatalf("expected 0 for short history, got %v", atr)
	}
}

func TestRealizedVolatilityZeroForFlatSeries(t *testing.T) {
	rets := make([]float64, 30)
	if v := RealizedVolatility(rets, 20, 365*24*60); v != 0 {
		t.Fatalf("flat series must have zero vol, got %v", v)
	}
}

func TestRealizedVolatilityPositive(t *testing.T) {
	rets := []float64{0.01, -0.02, 0.015, -0.005, 0.02, -0.01, 0.005, -0.015, 0.01, -0.02}
	if v := RealizedVolatility(rets, 10, 365*24*60); v <= 0 {
		t.Fatalf("expected positive vol, got %v", v)
	}
}
