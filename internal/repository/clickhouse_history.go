package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/domain/repository"
	pkgch "SigCouncil/pkg/clickhouse"
)

const (
	recommendationsTable = "sigcouncil.recommendations"
	outcomesTable        = "sigcouncil.outcomes"
)

// CHRecommendationStore is the append-only recommendation history in
// ClickHouse.
type CHRecommendationStore struct {
	db *sql.DB
}

// NewCHRecommendationStore creates the store on an existing client.
func NewCHRecommendationStore(ch *pkgch.Client) repository.RecommendationStore {
	return &CHRecommendationStore{db: ch.DB()}
}

func (s *CHRecommendationStore) Append(ctx context.Context, rec *models.Recommendation) error {
	return s.AppendBatch(ctx, []*models.Recommendation{rec})
}

func (s *CHRecommendationStore) AppendBatch(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, r := range recs[start:end] {
			if r == nil || r.Asset == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.CreatedAt,
				r.Asset,
				r.ScanID,
				string(r.Direction),
				r.Confidence,
				r.Entry,
				r.TakeProfit,
				r.StopLoss,
				uint32(r.BotCount),
				r.Disagreement,
				string(r.Method),
				r.SnapshotVersion,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (created_at, asset, scan_id, direction, confidence, entry, take_profit, stop_loss, bot_count, disagreement, method, snapshot_version) VALUES %s",
			recommendationsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert recommendations: %w", err)
		}
	}
	return nil
}

func (s *CHRecommendationStore) Latest(ctx context.Context, asset string, limit int) ([]*models.Recommendation, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
        SELECT created_at, asset, scan_id, direction, confidence, entry, take_profit, stop_loss, bot_count, disagreement, method, snapshot_version
        FROM %s
        WHERE asset = ?
        ORDER BY created_at DESC
        LIMIT ?`, recommendationsTable)
	rows, err := s.db.QueryContext(ctx, q, asset, limit)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Recommendation, 0, limit)
	for rows.Next() {
		var r models.Recommendation
		var direction, method string
		var botCount uint32
		if err := rows.Scan(&r.CreatedAt, &r.Asset, &r.ScanID, &direction, &r.Confidence,
			&r.Entry, &r.TakeProfit, &r.StopLoss, &botCount, &r.Disagreement, &method, &r.SnapshotVersion); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.Direction = models.Direction(direction)
		r.Method = models.SynthesisMethod(method)
		r.BotCount = int(botCount)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *CHRecommendationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHRecommendationStore) Close() error {
	return nil // Managed by pkg
}

// CHOutcomeStore is the append-only outcome history in ClickHouse.
type CHOutcomeStore struct {
	db *sql.DB
}

// NewCHOutcomeStore creates the store on an existing client.
func NewCHOutcomeStore(ch *pkgch.Client) repository.OutcomeStore {
	return &CHOutcomeStore{db: ch.DB()}
}

func (s *CHOutcomeStore) Append(ctx context.Context, ev *models.OutcomeEvent) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (detected_at, bot_id, prediction_id, asset, outcome, realized_price, magnitude, regime, confidence) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		outcomesTable)
	_, err := s.db.ExecContext(ctx, q,
		ev.DetectedAt,
		ev.BotID,
		ev.PredictionID,
		ev.Asset,
		string(ev.Outcome),
		ev.RealizedPrice,
		ev.Magnitude,
		string(ev.Regime),
		ev.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (s *CHOutcomeStore) ByBot(ctx context.Context, botID string, limit int) ([]*models.OutcomeEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`
        SELECT detected_at, bot_id, prediction_id, asset, outcome, realized_price, magnitude, regime, confidence
        FROM %s
        WHERE bot_id = ?
        ORDER BY detected_at DESC
        LIMIT ?`, outcomesTable)
	rows, err := s.db.QueryContext(ctx, q, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]*models.OutcomeEvent, 0, limit)
	for rows.Next() {
		var ev models.OutcomeEvent
		var outcome, regime string
		if err := rows.Scan(&ev.DetectedAt, &ev.BotID, &ev.PredictionID, &ev.Asset,
			&outcome, &ev.RealizedPrice, &ev.Magnitude, &regime, &ev.Confidence); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		ev.Outcome = models.Outcome(outcome)
		ev.Regime = models.Regime(regime)
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (s *CHOutcomeStore) Close() error {
	return nil // Managed by pkg
}

// SchemaStatements returns the DDL the app runs at startup.
func SchemaStatements() []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS sigcouncil",
		`CREATE TABLE IF NOT EXISTS sigcouncil.recommendations (
            created_at DateTime64(3),
            asset LowCardinality(String),
            scan_id String,
            direction LowCardinality(String),
            confidence Float64,
            entry Float64,
            take_profit Float64,
            stop_loss Float64,
            bot_count UInt32,
            disagreement Float64,
            method LowCardinality(String),
            snapshot_version UInt64
        ) ENGINE=MergeTree ORDER BY (asset, created_at)`,
		`CREATE TABLE IF NOT EXISTS sigcouncil.outcomes (
            detected_at DateTime64(3),
            bot_id LowCardinality(String),
            prediction_id String,
            asset LowCardinality(String),
            outcome LowCardinality(String),
            realized_price Float64,
            magnitude Float64,
            regime LowCardinality(String),
            confidence Float64
        ) ENGINE=MergeTree ORDER BY (bot_id, detected_at)`,
		`CREATE TABLE IF NOT EXISTS sigcouncil.rt_candles_1m (
            bucket DateTime,
            asset LowCardinality(String),
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            vol Float64
        ) ENGINE=MergeTree ORDER BY (asset, bucket)`,
	}
}
