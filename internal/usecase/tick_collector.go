package usecase

import (
	"context"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	mid "PairWatch/internal/middleware"
)

// TickCollector drives the market stream and pushes ticks through the
// pipeline into the processor.
type TickCollector struct {
	stream  drepo.MarketStream
	proc    *TickProcessor
	metrics drepo.Metrics
	pipe    *mid.TickPipeline
}

// NewTickCollector creates a collector. A nil pipeline skips
// validation/throttling and feeds the processor directly.
func NewTickCollector(stream drepo.MarketStream, proc *TickProcessor, metrics drepo.Metrics, pipe *mid.TickPipeline) *TickCollector {
	return &TickCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected reports the stream connection status.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err == nil {
				continue
			}
			// the stream failed, or its read goroutine exited and closed
			// the channels; either way the old channels are dead
			c.metrics.RecordError("stream")
			if tickCh, errCh = c.redial(ctx); tickCh == nil {
				return
			}
		case t, ok := <-tickCh:
			if !ok {
				// drained; the error branch owns the redial, a nil
				// channel blocks instead of spinning
				tickCh = nil
				continue
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				if err := c.proc.Ingest(ctx, t); err == nil {
					_ = c.proc.Publish(ctx, t)
				}
			}
		}
	}
}

// redial retries Reconnect until the stream is back, paced by the
// stream's configured delay. Returns nil channels when the context ends
// first.
func (c *TickCollector) redial(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
}

// Processor returns the underlying TickProcessor for lifecycle management.
func (c *TickCollector) Processor() *TickProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
