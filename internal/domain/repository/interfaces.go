package repository

import (
	"context"
	"time"

	"SigCouncil/internal/domain/models"
)

// RecommendationStore is the append-only recommendation history.
type RecommendationStore interface {
	Append(ctx context.Context, rec *models.Recommendation) error
	AppendBatch(ctx context.Context, recs []*models.Recommendation) error
	Latest(ctx context.Context, asset string, limit int) ([]*models.Recommendation, error)
	Health(ctx context.Context) error
	Close() error
}

// OutcomeStore is the append-only outcome history consumed by reporting.
type OutcomeStore interface {
	Append(ctx context.Context, ev *models.OutcomeEvent) error
	ByBot(ctx context.Context, botID string, limit int) ([]*models.OutcomeEvent, error)
	Close() error
}

// WeightStore persists the latest committed weight snapshot so influence
// weights survive restarts. Load returns (nil, nil) when nothing is stored.
type WeightStore interface {
	Save(ctx context.Context, snap *models.WeightSnapshot) error
	Load(ctx context.Context) (*models.WeightSnapshot, error)
	Close() error
}

// Publisher pushes recommendations to downstream consumers (notification,
// persistence layers outside this core).
type Publisher interface {
	Publish(ctx context.Context, rec *models.Recommendation) error
	PublishBatch(ctx context.Context, recs []*models.Recommendation) error
	Close() error
}

// Metrics is the domain-facing metrics recorder.
type Metrics interface {
	RecordScan(assets int, dur time.Duration)
	RecordRecommendation(asset string, direction string)
	RecordSuppressed(asset, reason string)
	RecordAbstention(botID string)
	RecordOutcome(outcome string)
	RecordSnapshotVersion(v uint64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
