package features

import (
	"math"

	"SigCouncil/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// ComputeATR computes the average true range over the trailing period via
// Wilder smoothing. Returns 0 when there are fewer than period+1 candles.
func ComputeATR(candles []models.Candle, period int) float64 {
	if period < 1 || len(candles) < period+1 {
		return 0
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, trueRange(candles[i], candles[i-1].Close))
	}

	atr := 0.0
	for _, tr := range trs[:period] {
		atr += tr
	}
	atr /= float64(period)

	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(c models.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if d := math.Abs(c.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(c.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// RealizedVolatility computes annualized realized volatility over a rolling
// window using the provided number of bars per year. Returns the latest
// window sigma.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	// annualize
	return math.Sqrt(variance * barsPerYear)
}
