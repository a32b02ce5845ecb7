package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/domain/repository"
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/internal/service/ratelimit"
	"SigCouncil/internal/services/calibrate"
	"SigCouncil/internal/services/consensus"
	"SigCouncil/internal/services/features"
	"SigCouncil/internal/services/levels"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/tracker"
	"SigCouncil/pkg/logger"
)

// Rate limiter keys for external dependencies.
const (
	LimitKeyMarketData = "market_data"
	LimitKeyRegime     = "regime"
)

const atrPeriod = 14

// ScanUseCase runs one full ensemble scan: market context, bot fan-out,
// calibration, consensus, level synthesis and publication. Assets are
// independent and run on a bounded worker pool; within one asset the scan
// waits for every bot to finish or time out.
type ScanUseCase struct {
	market     domsvc.MarketDataProvider
	bots       []domsvc.BotEvaluator
	classifier domsvc.RegimeClassifier

	calibrator  *calibrate.Calibrator
	aggregator  *consensus.Aggregator
	synthesizer *levels.Synthesizer
	tracker     *tracker.Tracker
	optimizer   *optimizer.Optimizer
	outcomes    *OutcomeUseCase

	store     repository.RecommendationStore
	publisher repository.Publisher
	metrics   repository.Metrics
	limiter   *ratelimit.Limiter
	log       *logger.Logger

	workers    int
	botTimeout time.Duration
}

// ScanDeps carries the collaborators of a ScanUseCase.
type ScanDeps struct {
	Market     domsvc.MarketDataProvider
	Bots       []domsvc.BotEvaluator
	Classifier domsvc.RegimeClassifier

	Calibrator  *calibrate.Calibrator
	Aggregator  *consensus.Aggregator
	Synthesizer *levels.Synthesizer
	Tracker     *tracker.Tracker
	Optimizer   *optimizer.Optimizer
	Outcomes    *OutcomeUseCase

	Store     repository.RecommendationStore
	Publisher repository.Publisher
	Metrics   repository.Metrics
	Limiter   *ratelimit.Limiter
	Logger    *logger.Logger

	Workers    int
	BotTimeout time.Duration
}

// NewScanUseCase wires a scan from its dependencies.
func NewScanUseCase(d ScanDeps) *ScanUseCase {
	workers := d.Workers
	if workers < 1 {
		workers = 4
	}
	botTimeout := d.BotTimeout
	if botTimeout <= 0 {
		botTimeout = 5 * time.Second
	}
	return &ScanUseCase{
		market:      d.Market,
		bots:        d.Bots,
		classifier:  d.Classifier,
		calibrator:  d.Calibrator,
		aggregator:  d.Aggregator,
		synthesizer: d.Synthesizer,
		tracker:     d.Tracker,
		optimizer:   d.Optimizer,
		outcomes:    d.Outcomes,
		store:       d.Store,
		publisher:   d.Publisher,
		metrics:     d.Metrics,
		limiter:     d.Limiter,
		log:         d.Logger,
		workers:     workers,
		botTimeout:  botTimeout,
	}
}

// ScanResult reports what one scan produced.
type ScanResult struct {
	ScanID          string
	SnapshotVersion uint64
	Recommendations []*models.Recommendation
	// Suppressed maps asset to the reason no recommendation was emitted.
	Suppressed map[string]string
	// Errors maps asset to a scan-level failure (market data unavailable etc).
	Errors map[string]string
}

// ScanAll evaluates every asset against the whole bot council. The weight
// snapshot is read exactly once at scan start and used unchanged throughout;
// the optimizer may commit a newer version mid-scan without affecting us.
func (uc *ScanUseCase) ScanAll(ctx context.Context, assets []string) (*ScanResult, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets to scan: %w", models.ErrInvalidInput)
	}

	started := time.Now()
	snap := uc.optimizer.Current()
	res := &ScanResult{
		ScanID:          fmt.Sprintf("scan-%d", started.UnixNano()),
		SnapshotVersion: snap.Version,
		Suppressed:      map[string]string{},
		Errors:          map[string]string{},
	}

	type item struct {
		asset string
		rec   *models.Recommendation
		err   error
	}
	ch := make(chan item, len(assets))
	sem := make(chan struct{}, uc.workers)
	var wg sync.WaitGroup

	for _, asset := range assets {
		// Cancellation stops new assets promptly; running ones finish with
		// whatever predictions they already collected.
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec, err := uc.scanAsset(ctx, asset, snap, res.ScanID)
			ch <- item{asset: asset, rec: rec, err: err}
		}(asset)
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		switch {
		case it.err != nil && isSuppression(it.err):
			res.Suppressed[it.asset] = it.err.Error()
			uc.metrics.RecordSuppressed(it.asset, suppressionReason(it.err))
		case it.err != nil:
			res.Errors[it.asset] = it.err.Error()
			uc.metrics.RecordError("scan_asset")
		default:
			res.Recommendations = append(res.Recommendations, it.rec)
			uc.metrics.RecordRecommendation(it.asset, string(it.rec.Direction))
		}
	}

	if len(res.Recommendations) > 0 {
		if err := uc.store.AppendBatch(ctx, res.Recommendations); err != nil {
			uc.log.Error("persist recommendations", logger.Error(err))
			uc.metrics.RecordError("persist_recommendations")
		}
		if err := uc.publisher.PublishBatch(ctx, res.Recommendations); err != nil {
			uc.log.Error("publish recommendations", logger.Error(err))
			uc.metrics.RecordError("publish_recommendations")
		}
	}

	uc.metrics.RecordScan(len(assets), time.Since(started))
	uc.metrics.RecordSnapshotVersion(snap.Version)
	uc.log.Info("scan finished",
		logger.String("scan_id", res.ScanID),
		logger.Int("assets", len(assets)),
		logger.Int("recommendations", len(res.Recommendations)),
		logger.Int("suppressed", len(res.Suppressed)),
		logger.Int("errors", len(res.Errors)),
		logger.Int64("snapshot_version", int64(snap.Version)))
	return res, nil
}

// scanAsset produces one recommendation, or a suppression error.
func (uc *ScanUseCase) scanAsset(ctx context.Context, asset string, snap *models.WeightSnapshot, scanID string) (*models.Recommendation, error) {
	if err := uc.limiter.Wait(ctx, LimitKeyMarketData); err != nil {
		return nil, err
	}
	market, err := uc.market.Snapshot(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("market snapshot for %s: %w", asset, err)
	}
	if market.ATR == 0 {
		market.ATR = features.ComputeATR(market.Candles, atrPeriod)
	}

	regime := uc.classifyRegime(ctx, asset, market)

	preds := uc.collectPredictions(ctx, asset, market)

	opinions := make([]consensus.Opinion, 0, len(preds))
	for _, p := range preds {
		lo, err := uc.calibrator.CalibrateLogOdds(p.RawConfidence)
		if err != nil {
			uc.log.Warn("uncalibratable prediction",
				logger.String("bot", p.BotID),
				logger.String("asset", asset),
				logger.Error(err))
			uc.metrics.RecordAbstention(p.BotID)
			continue
		}
		opinions = append(opinions, consensus.Opinion{
			Prediction: p,
			LogOdds:    lo,
			Weight:     snap.Weight(p.BotID),
		})
	}

	cons, err := uc.aggregator.Aggregate(opinions)
	if err != nil {
		return nil, fmt.Errorf("consensus for %s: %w", asset, err)
	}
	if cons.Direction == models.DirectionNeutral {
		return nil, fmt.Errorf("consensus for %s: %w", asset, models.ErrNeutralConsensus)
	}

	proposals := make([]*models.BotPrediction, 0, len(opinions))
	for _, o := range opinions {
		if o.Weight > 0 && o.Prediction.Direction == cons.Direction {
			proposals = append(proposals, o.Prediction)
		}
	}
	lv, err := uc.synthesizer.Synthesize(cons.Direction, proposals, market.CurrentPrice, market.ATR, regime.Regime)
	if err != nil {
		return nil, fmt.Errorf("levels for %s: %w", asset, err)
	}

	for _, o := range opinions {
		if o.Weight > 0 {
			uc.tracker.TrackPrediction(o.Prediction)
			if uc.outcomes != nil {
				uc.outcomes.Watch(o.Prediction, regime.Regime, cons.Confidence)
			}
		}
	}

	return &models.Recommendation{
		Asset:           asset,
		ScanID:          scanID,
		Direction:       cons.Direction,
		Confidence:      cons.Confidence,
		Entry:           lv.Entry,
		TakeProfit:      lv.TakeProfit,
		StopLoss:        lv.StopLoss,
		BotCount:        cons.BotCount,
		Disagreement:    cons.Disagreement,
		Method:          lv.Method,
		SnapshotVersion: snap.Version,
		CreatedAt:       time.Now(),
	}, nil
}

// classifyRegime is best-effort; a failed classifier call degrades to UNKNOWN
// rather than failing the asset.
func (uc *ScanUseCase) classifyRegime(ctx context.Context, asset string, market *models.MarketSnapshot) models.RegimeState {
	returns := features.ComputeLogReturns(market.Candles)
	if err := uc.limiter.Wait(ctx, LimitKeyRegime); err == nil {
		if st, err := uc.classifier.Classify(ctx, asset, returns); err == nil {
			return st
		} else {
			uc.log.Warn("regime classification failed",
				logger.String("asset", asset), logger.Error(err))
			uc.metrics.RecordError("regime_classify")
		}
	}
	return models.RegimeState{Asset: asset, Regime: models.RegimeUnknown, Timestamp: time.Now()}
}

// collectPredictions fans out to every bot with a per-bot timeout. A slow,
// failing or declining bot becomes an abstention, never a scan failure, and
// the fan-in always waits for all launched bots.
func (uc *ScanUseCase) collectPredictions(ctx context.Context, asset string, market *models.MarketSnapshot) []*models.BotPrediction {
	ch := make(chan *models.BotPrediction, len(uc.bots))
	var wg sync.WaitGroup

	for _, bot := range uc.bots {
		wg.Add(1)
		go func(bot domsvc.BotEvaluator) {
			defer wg.Done()

			botCtx, cancel := context.WithTimeout(ctx, uc.botTimeout)
			defer cancel()

			p, err := bot.Evaluate(botCtx, asset, market)
			if err != nil {
				uc.log.Debug("bot abstained",
					logger.String("bot", bot.ID()),
					logger.String("asset", asset),
					logger.Error(&models.AbstainError{BotID: bot.ID(), Cause: err}))
				uc.metrics.RecordAbstention(bot.ID())
				return
			}
			if p == nil {
				uc.metrics.RecordAbstention(bot.ID())
				return
			}
			if err := p.Validate(); err != nil {
				uc.log.Warn("bot emitted invalid prediction",
					logger.String("bot", bot.ID()),
					logger.String("asset", asset),
					logger.Error(err))
				uc.metrics.RecordAbstention(bot.ID())
				return
			}
			ch <- p
		}(bot)
	}

	wg.Wait()
	close(ch)

	preds := make([]*models.BotPrediction, 0, len(uc.bots))
	for p := range ch {
		preds = append(preds, p)
	}
	return preds
}

func isSuppression(err error) bool {
	return errors.Is(err, models.ErrQuorumNotMet) ||
		errors.Is(err, models.ErrNeutralConsensus) ||
		errors.Is(err, models.ErrInvalidLevels)
}

func suppressionReason(err error) string {
	switch {
	case errors.Is(err, models.ErrQuorumNotMet):
		return "quorum_not_met"
	case errors.Is(err, models.ErrNeutralConsensus):
		return "neutral_consensus"
	case errors.Is(err, models.ErrInvalidLevels):
		return "invalid_levels"
	default:
		return "other"
	}
}
