package repository

import (
	"context"

	"PairWatch/internal/domain/models"
	"PairWatch/internal/domain/repository"
	pkgkafka "PairWatch/pkg/kafka"
)

// KafkaTickPublisher tees accepted ticks to a Kafka topic for
// downstream consumers. Keyed by symbol so per-symbol ordering survives
// partitioning.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTickPublisher creates the tick tee.
func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func tickPayload(t *models.Tick) map[string]interface{} {
	return map[string]interface{}{
		"symbol": t.Symbol,
		"t":      t.Timestamp,
		"p":      t.Price,
		"v":      t.Volume,
	}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), tickPayload(t))
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.Symbol), Value: tickPayload(t)}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Topic reports the destination topic for metric labels.
func (p *KafkaTickPublisher) Topic() string { return p.topic }

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
