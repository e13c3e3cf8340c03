package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	"PairWatch/internal/service/ratelimit"
)

// Proc is what the pipeline drives. Ingest folds the tick into the
// in-memory store and is never retried; Publish tees the tick to an
// external sink and is retried from the buffer on failure.
type Proc interface {
	Ingest(ctx context.Context, t *models.Tick) error
	Publish(ctx context.Context, t *models.Tick) error
}

// TickPipeline sits between a feed source and the processor. It
// validates ticks, throttles per symbol with a token bucket, and keeps
// a bounded retry buffer for failed tee publishes. Throttled or invalid
// ticks are counted and dropped; nothing here is fatal.
type TickPipeline struct {
	proc    Proc
	metrics drepo.Metrics
	limiter *ratelimit.Limiter

	maxRPS  int
	bufSize int
	bufCh   chan *models.Tick
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	// optional tick rewrite hook (symbol normalization etc.)
	transform func(*models.Tick) *models.Tick
}

type PipelineOption func(*TickPipeline)

// WithMaxRPS sets the max accepted ticks per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer capacity for failed publishes.
func WithBufferSize(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a tick rewrite hook applied before validation of
// the rewritten tick.
func WithTransform(fn func(*models.Tick) *models.Tick) PipelineOption {
	return func(p *TickPipeline) { p.transform = fn }
}

// NewTickPipeline creates a pipeline. Defaults: 20 ticks/s per symbol,
// 1000 buffered retries.
func NewTickPipeline(proc Proc, metrics drepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  20,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Tick, p.bufSize)
	return p
}

// Start launches the background flush loop that retries buffered
// publishes with capped exponential backoff.
func (p *TickPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.Publish(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the flush loop.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and throttles a tick, ingests it, and tees it to
// the publisher, buffering the tee on failure.
func (p *TickPipeline) Process(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTick(t); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.limiter.Allow(t.Symbol, float64(p.maxRPS), float64(p.maxRPS)) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Ingest(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_ingest")
		return fmt.Errorf("pipeline ingest: %w", err)
	}

	if err := p.proc.Publish(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_publish")
		select {
		case p.bufCh <- t:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return nil
	}

	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 {
		return fmt.Errorf("price invalid")
	}
	if t.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}
