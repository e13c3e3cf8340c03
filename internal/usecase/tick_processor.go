package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	"PairWatch/internal/market/resampler"
	"PairWatch/internal/market/tickbuffer"
	xlogger "PairWatch/pkg/logger"
)

// TickProcessor folds accepted ticks into the in-memory store and
// optionally tees them to a publisher. Store rejections (out-of-order,
// stale) are counted and dropped; they never propagate as failures.
type TickProcessor struct {
	buffer  *tickbuffer.Buffer
	res     *resampler.Resampler
	pub     drepo.Publisher // nil disables the tee
	metrics drepo.Metrics
	logger  *xlogger.Logger
	source  string
}

// NewTickProcessor creates a processor. source labels the feed in
// metrics ("binance" or "kafka").
func NewTickProcessor(
	buffer *tickbuffer.Buffer,
	res *resampler.Resampler,
	pub drepo.Publisher,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	source string,
) *TickProcessor {
	return &TickProcessor{
		buffer:  buffer,
		res:     res,
		pub:     pub,
		metrics: metrics,
		logger:  logger,
		source:  source,
	}
}

// Ingest writes the tick into the buffer and the resampler.
func (p *TickProcessor) Ingest(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	start := time.Now()

	if err := p.buffer.Append(*t); err != nil {
		if errors.Is(err, tickbuffer.ErrOutOfOrder) {
			p.metrics.RecordError("out_of_order")
			p.logger.Debug("tick dropped", xlogger.String("symbol", t.Symbol), xlogger.Error(err))
			return nil
		}
		return fmt.Errorf("buffer append: %w", err)
	}

	if err := p.res.Ingest(*t); err != nil {
		if errors.Is(err, resampler.ErrStaleTick) {
			// stale for at least one interval; the others were updated
			p.metrics.RecordError("stale_tick")
		} else {
			return fmt.Errorf("resample: %w", err)
		}
	}

	p.metrics.RecordTickIngested(p.source, t.Symbol)
	p.metrics.RecordLastPrice(t.Symbol, t.Price)
	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	return nil
}

// Publish tees the tick to the configured publisher. No-op without one.
func (p *TickProcessor) Publish(ctx context.Context, t *models.Tick) error {
	if p.pub == nil {
		return nil
	}
	if err := p.pub.Publish(ctx, t); err != nil {
		return fmt.Errorf("publish tick: %w", err)
	}
	p.metrics.RecordTickPublished(p.pub.Topic(), t.Symbol)
	return nil
}

// Close closes the publisher if one is attached.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
