package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SigCouncil/internal/domain/models"
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/internal/services/features"
	pkgch "SigCouncil/pkg/clickhouse"
	applogger "SigCouncil/pkg/logger"
)

const (
	candlesTable     = "sigcouncil.rt_candles_1m"
	defaultCandleLen = 200
	marketATRPeriod  = 14
)

// CHMarketProvider builds per-asset market snapshots from the 1m candle table,
// taking the live price from the price feed when it has one and the last close
// otherwise.
type CHMarketProvider struct {
	db     *sql.DB
	prices domsvc.PriceSource // optional
	l      *applogger.Logger
	limit  int
}

// NewCHMarketProvider creates the provider on an existing client. prices may
// be nil.
func NewCHMarketProvider(ch *pkgch.Client, prices domsvc.PriceSource) *CHMarketProvider {
	return &CHMarketProvider{db: ch.DB(), prices: prices, limit: defaultCandleLen}
}

// SetLogger injects a structured logger.
func (p *CHMarketProvider) SetLogger(l *applogger.Logger) { p.l = l }

func (p *CHMarketProvider) Snapshot(ctx context.Context, asset string) (*models.MarketSnapshot, error) {
	start := time.Now()
	candles, err := p.latestCandles(ctx, asset, p.limit)
	if err != nil {
		if p.l != nil {
			p.l.Error("clickhouse candles query error",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("market snapshot: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles for %s", asset)
	}

	price := candles[len(candles)-1].Close
	if p.prices != nil {
		if live, err := p.prices.CurrentPrice(ctx, asset); err == nil && live > 0 {
			price = live
		}
	}

	snap := &models.MarketSnapshot{
		Asset:        asset,
		CurrentPrice: price,
		ATR:          features.ComputeATR(candles, marketATRPeriod),
		Candles:      candles,
		Timestamp:    time.Now(),
	}
	if p.l != nil {
		p.l.Debug("market snapshot built",
			applogger.String("asset", asset),
			applogger.Int("candles", len(candles)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return snap, nil
}

func (p *CHMarketProvider) latestCandles(ctx context.Context, asset string, n int) ([]models.Candle, error) {
	const qtpl = `
        SELECT bucket, asset, open, high, low, close, vol
        FROM %s
        WHERE asset = ?
        ORDER BY bucket DESC
        LIMIT ?`
	q := fmt.Sprintf(qtpl, candlesTable)
	rows, err := p.db.QueryContext(ctx, q, asset, n)
	if err != nil {
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Asset, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

var _ domsvc.MarketDataProvider = (*CHMarketProvider)(nil)
