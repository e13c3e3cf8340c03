package repository

import (
	"context"

	"PairWatch/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher tees accepted ticks to an external sink (Kafka). Optional:
// a nil Publisher disables the tee.
type Publisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Topic() string
	Close() error
}

type Metrics interface {
	RecordTickIngested(source, symbol string)
	RecordTickPublished(topic, symbol string)
	RecordBarsSealed(symbol, interval string, count int)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordAlertTriggered(rule string)
}
