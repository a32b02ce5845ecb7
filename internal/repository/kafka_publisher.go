package repository

import (
	"context"

	"SigCouncil/internal/domain/models"
	"SigCouncil/internal/domain/repository"
	pkgkafka "SigCouncil/pkg/kafka"
)

// KafkaPublisher pushes recommendations to the downstream topic.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func recPayload(r *models.Recommendation) map[string]interface{} {
	return map[string]interface{}{
		"asset":            r.Asset,
		"scan_id":          r.ScanID,
		"direction":        string(r.Direction),
		"confidence":       r.Confidence,
		"entry":            r.Entry,
		"take_profit":      r.TakeProfit,
		"stop_loss":        r.StopLoss,
		"bot_count":        r.BotCount,
		"disagreement":     r.Disagreement,
		"method":           string(r.Method),
		"snapshot_version": r.SnapshotVersion,
		"created_at":       r.CreatedAt.Unix(),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec *models.Recommendation) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Asset), recPayload(rec))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, r := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.Asset),
			Value: recPayload(r),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
