package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/domain/repository"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/tracker"
	"SigCouncil/pkg/logger"
)

// DefaultPredictionExpiry bounds how long an open prediction is watched before
// it resolves as EXPIRED.
const DefaultPredictionExpiry = 24 * time.Hour

type openPrediction struct {
	pred       *models.BotPrediction
	regime     models.Regime
	confidence float64
	openedAt   time.Time
}

// OutcomeUseCase watches open predictions for TP/SL crossings on the live
// tick stream and feeds resolved outcomes into the tracker, the optimizer and
// the outcome history. Each prediction resolves at most once.
type OutcomeUseCase struct {
	mu   sync.Mutex
	open map[string]*openPrediction // by prediction ID

	tracker   *tracker.Tracker
	optimizer *optimizer.Optimizer
	store     repository.OutcomeStore
	metrics   repository.Metrics
	log       *logger.Logger
	expiry    time.Duration
}

// NewOutcomeUseCase wires the outcome monitor. The store may be nil; outcome
// history is then not persisted.
func NewOutcomeUseCase(tr *tracker.Tracker, opt *optimizer.Optimizer, store repository.OutcomeStore,
	metrics repository.Metrics, log *logger.Logger, expiry time.Duration) *OutcomeUseCase {
	if expiry <= 0 {
		expiry = DefaultPredictionExpiry
	}
	return &OutcomeUseCase{
		open:      make(map[string]*openPrediction),
		tracker:   tr,
		optimizer: opt,
		store:     store,
		metrics:   metrics,
		log:       log,
		expiry:    expiry,
	}
}

// Watch registers a prediction for outcome detection. Predictions without
// levels cannot cross anything and only ever expire.
func (uc *OutcomeUseCase) Watch(p *models.BotPrediction, regime models.Regime, confidence float64) {
	if p == nil || p.ID == "" {
		return
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, exists := uc.open[p.ID]; exists {
		return
	}
	uc.open[p.ID] = &openPrediction{
		pred:       p,
		regime:     regime,
		confidence: confidence,
		openedAt:   time.Now(),
	}
}

// OpenCount reports how many predictions are currently watched.
func (uc *OutcomeUseCase) OpenCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.open)
}

// Process applies one tick: every open prediction on the tick's asset whose
// TP or SL the price crossed resolves now. Implements the tick pipeline's
// processor interface.
func (uc *OutcomeUseCase) Process(ctx context.Context, tick *models.PriceTick) error {
	if tick == nil || tick.Asset == "" || tick.Price <= 0 {
		return fmt.Errorf("invalid tick: %w", models.ErrInvalidInput)
	}

	uc.mu.Lock()
	var resolved []*models.OutcomeEvent
	for id, op := range uc.open {
		if op.pred.Asset != tick.Asset {
			continue
		}
		outcome, ok := crossed(op.pred, tick.Price)
		if !ok {
			continue
		}
		resolved = append(resolved, uc.eventLocked(op, outcome, tick.Price))
		delete(uc.open, id)
	}
	uc.mu.Unlock()

	for _, ev := range resolved {
		uc.apply(ctx, ev)
	}
	return nil
}

// Resolve applies an externally detected outcome, bypassing crossing
// detection. The prediction stops being watched; the idempotence gate still
// drops a duplicate of a tick-detected resolution.
func (uc *OutcomeUseCase) Resolve(ctx context.Context, ev *models.OutcomeEvent) {
	if ev == nil || ev.PredictionID == "" {
		return
	}
	uc.mu.Lock()
	delete(uc.open, ev.PredictionID)
	uc.mu.Unlock()

	uc.apply(ctx, ev)
}

// ExpireStale resolves predictions older than the expiry horizon as EXPIRED.
func (uc *OutcomeUseCase) ExpireStale(ctx context.Context, now time.Time) int {
	uc.mu.Lock()
	var expired []*models.OutcomeEvent
	for id, op := range uc.open {
		if now.Sub(op.openedAt) < uc.expiry {
			continue
		}
		expired = append(expired, uc.eventLocked(op, models.OutcomeExpired, 0))
		delete(uc.open, id)
	}
	uc.mu.Unlock()

	for _, ev := range expired {
		uc.apply(ctx, ev)
	}
	return len(expired)
}

func (uc *OutcomeUseCase) eventLocked(op *openPrediction, outcome models.Outcome, price float64) *models.OutcomeEvent {
	magnitude := 0.0
	if price > 0 && op.pred.Entry > 0 {
		magnitude = math.Abs(price-op.pred.Entry) / op.pred.Entry
	}
	return &models.OutcomeEvent{
		BotID:         op.pred.BotID,
		PredictionID:  op.pred.ID,
		Asset:         op.pred.Asset,
		Outcome:       outcome,
		RealizedPrice: price,
		Magnitude:     magnitude,
		Regime:        op.regime,
		Confidence:    op.confidence,
		DetectedAt:    time.Now(),
	}
}

// apply routes one resolved outcome. The tracker's idempotence gate decides
// whether the event counts; duplicates stop here and reach neither the
// optimizer nor the history.
func (uc *OutcomeUseCase) apply(ctx context.Context, ev *models.OutcomeEvent) {
	if !uc.tracker.RecordOutcome(ev) {
		return
	}
	uc.optimizer.Observe(ev)
	uc.metrics.RecordOutcome(string(ev.Outcome))

	if uc.store != nil {
		if err := uc.store.Append(ctx, ev); err != nil {
			uc.log.Error("persist outcome",
				logger.String("prediction", ev.PredictionID),
				logger.Error(err))
			uc.metrics.RecordError("persist_outcome")
		}
	}

	uc.log.Debug("outcome resolved",
		logger.String("bot", ev.BotID),
		logger.String("asset", ev.Asset),
		logger.String("outcome", string(ev.Outcome)))
}

// crossed reports whether price resolves the prediction, and how. With no
// levels there is nothing to cross.
func crossed(p *models.BotPrediction, price float64) (models.Outcome, bool) {
	if !p.HasLevels() {
		return "", false
	}
	switch p.Direction {
	case models.DirectionLong:
		if price >= p.TakeProfit {
			return models.OutcomeTPHit, true
		}
		if price <= p.StopLoss {
			return models.OutcomeSLHit, true
		}
	case models.DirectionShort:
		if price <= p.TakeProfit {
			return models.OutcomeTPHit, true
		}
		if price >= p.StopLoss {
			return models.OutcomeSLHit, true
		}
	}
	return "", false
}
