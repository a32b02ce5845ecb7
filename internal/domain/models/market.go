package models

import "time"

// Candle is an OHLCV record delivered by the market data provider.
type Candle struct {
	Bucket time.Time
	Asset  string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceTick is one live trade print from the price feed.
type PriceTick struct {
	Asset     string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// MarketSnapshot is the per-asset market context a scan hands to the core.
// The core never fetches data itself; the provider collaborator fills this in.
type MarketSnapshot struct {
	Asset        string
	CurrentPrice float64
	ATR          float64 // average true range, same units as price
	Candles      []Candle
	Timestamp    time.Time
}
