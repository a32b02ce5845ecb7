package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/pkg/logger"
)

func testLogger() *logger.Logger {
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}

// --- collaborators ---

type fakeMarket struct {
	snapshots map[string]*models.MarketSnapshot
	err       error
}

func (m *fakeMarket) Snapshot(_ context.Context, asset string) (*models.MarketSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.snapshots[asset]
	if !ok {
		return nil, errors.New("no snapshot for " + asset)
	}
	return s, nil
}

type fakeBot struct {
	id    string
	pred  *models.BotPrediction
	err   error
	sleep time.Duration
}

func (b *fakeBot) ID() string { return b.id }

func (b *fakeBot) Evaluate(ctx context.Context, asset string, _ *models.MarketSnapshot) (*models.BotPrediction, error) {
	if b.sleep > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.sleep):
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	if b.pred == nil {
		return nil, nil
	}
	p := *b.pred
	p.BotID = b.id
	p.ID = b.id + "-" + asset
	p.Asset = asset
	return &p, nil
}

type fakeClassifier struct {
	regime models.Regime
	err    error
}

func (c *fakeClassifier) Classify(_ context.Context, asset string, _ []float64) (models.RegimeState, error) {
	if c.err != nil {
		return models.RegimeState{}, c.err
	}
	return models.RegimeState{Asset: asset, Regime: c.regime, Confidence: 0.9, Timestamp: time.Now()}, nil
}

// --- repositories ---

type memRecStore struct {
	mu   sync.Mutex
	recs []*models.Recommendation
}

func (s *memRecStore) Append(_ context.Context, rec *models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memRecStore) AppendBatch(_ context.Context, recs []*models.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, recs...)
	return nil
}

func (s *memRecStore) Latest(_ context.Context, asset string, limit int) ([]*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Recommendation
	for i := len(s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.recs[i].Asset == asset {
			out = append(out, s.recs[i])
		}
	}
	return out, nil
}

func (s *memRecStore) Health(context.Context) error { return nil }
func (s *memRecStore) Close() error                 { return nil }

type memOutcomeStore struct {
	mu     sync.Mutex
	events []*models.OutcomeEvent
}

func (s *memOutcomeStore) Append(_ context.Context, ev *models.OutcomeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memOutcomeStore) ByBot(_ context.Context, botID string, limit int) ([]*models.OutcomeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.OutcomeEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].BotID == botID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *memOutcomeStore) Close() error { return nil }

type memPublisher struct {
	mu        sync.Mutex
	published []*models.Recommendation
}

func (p *memPublisher) Publish(_ context.Context, rec *models.Recommendation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, rec)
	return nil
}

func (p *memPublisher) PublishBatch(_ context.Context, recs []*models.Recommendation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, recs...)
	return nil
}

func (p *memPublisher) Close() error { return nil }

type nopMetrics struct {
	mu          sync.Mutex
	suppressed  map[string]string
	abstentions int
	outcomes    int
}

func newNopMetrics() *nopMetrics {
	return &nopMetrics{suppressed: make(map[string]string)}
}

func (m *nopMetrics) RecordScan(int, time.Duration)          {}
func (m *nopMetrics) RecordRecommendation(string, string)    {}
func (m *nopMetrics) RecordSnapshotVersion(uint64)           {}
func (m *nopMetrics) RecordError(string)                     {}
func (m *nopMetrics) RecordLatency(string, float64)          {}

func (m *nopMetrics) RecordSuppressed(asset, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[asset] = reason
}

func (m *nopMetrics) RecordAbstention(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abstentions++
}

func (m *nopMetrics) RecordOutcome(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes++
}
