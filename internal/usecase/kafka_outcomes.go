package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SigCouncil/internal/domain/models"
	domrepo "SigCouncil/internal/domain/repository"
	pkgkafka "SigCouncil/pkg/kafka"
)

// KafkaOutcomesHandler consumes externally detected outcome events. Some
// resolutions (exchange fills, settlement jobs) arrive over Kafka instead of
// the live tick monitor; both paths converge on the same idempotence gate.
type KafkaOutcomesHandler struct {
	topic    string
	outcomes *OutcomeUseCase
	metrics  domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, outcomes *OutcomeUseCase, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, outcomes: outcomes, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema:
// {bot_id, prediction_id, asset, outcome, realized_price, magnitude, regime, confidence, detected_at}
func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		BotID         string  `json:"bot_id"`
		PredictionID  string  `json:"prediction_id"`
		Asset         string  `json:"asset"`
		Outcome       string  `json:"outcome"`
		RealizedPrice float64 `json:"realized_price"`
		Magnitude     float64 `json:"magnitude"`
		Regime        string  `json:"regime"`
		Confidence    float64 `json:"confidence"`
		DetectedAt    int64   `json:"detected_at"` // unix seconds
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.BotID == "" || m.PredictionID == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("outcome event missing ids: %w", models.ErrInvalidInput)
	}
	switch models.Outcome(m.Outcome) {
	case models.OutcomeTPHit, models.OutcomeSLHit, models.OutcomeExpired:
	default:
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("unknown outcome %q: %w", m.Outcome, models.ErrInvalidInput)
	}

	detectedAt := time.Now()
	if m.DetectedAt > 0 {
		detectedAt = time.Unix(m.DetectedAt, 0)
		h.metrics.RecordLatency("outcome_e2e_seconds", time.Since(detectedAt).Seconds())
	}

	h.outcomes.Resolve(ctx, &models.OutcomeEvent{
		BotID:         m.BotID,
		PredictionID:  m.PredictionID,
		Asset:         m.Asset,
		Outcome:       models.Outcome(m.Outcome),
		RealizedPrice: m.RealizedPrice,
		Magnitude:     m.Magnitude,
		Regime:        models.NormalizeRegime(m.Regime),
		Confidence:    m.Confidence,
		DetectedAt:    detectedAt,
	})
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
