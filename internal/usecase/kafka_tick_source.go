package usecase

import (
	"context"
	"encoding/json"
	"time"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	mid "PairWatch/internal/middleware"
	pkgkafka "PairWatch/pkg/kafka"
)

// KafkaTickSource is the alternate ingestion adapter: it consumes tick
// JSON from a topic and pushes it through the same pipeline the
// WebSocket feed uses. Deployments with a separate collector publishing
// the firehose select it with feed.source=kafka.
type KafkaTickSource struct {
	topic   string
	pipe    *mid.TickPipeline
	proc    *TickProcessor
	metrics drepo.Metrics
}

func NewKafkaTickSource(topic string, pipe *mid.TickPipeline, proc *TickProcessor, metrics drepo.Metrics) *KafkaTickSource {
	return &KafkaTickSource{topic: topic, pipe: pipe, proc: proc, metrics: metrics}
}

func (h *KafkaTickSource) Topic() string { return h.topic }

// Handle decodes one message: {symbol, t, p, v} with t in epoch
// milliseconds (seconds tolerated and upscaled).
func (h *KafkaTickSource) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		P      float64 `json:"p"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 0 && m.T < 1e11 { // seconds
		m.T *= 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(m.T)).Seconds())

	t := &models.Tick{Symbol: m.Symbol, Timestamp: m.T, Price: m.P, Volume: m.V}
	if h.pipe != nil {
		return h.pipe.Process(ctx, t)
	}
	if err := h.proc.Ingest(ctx, t); err != nil {
		return err
	}
	return h.proc.Publish(ctx, t)
}

var _ pkgkafka.MessageHandler = (*KafkaTickSource)(nil)
