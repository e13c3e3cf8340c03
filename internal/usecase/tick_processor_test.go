package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PairWatch/internal/domain/models"
	"PairWatch/internal/market/resampler"
	"PairWatch/internal/market/tickbuffer"
	xlogger "PairWatch/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordTickIngested(source, symbol string)        {}
func (nopMetrics) RecordTickPublished(topic, symbol string)        {}
func (nopMetrics) RecordBarsSealed(symbol, interval string, n int) {}
func (nopMetrics) RecordError(kind string)                         {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)    {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}
func (nopMetrics) RecordAlertTriggered(rule string)                {}

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.Tick
	err       error
	closed    bool
}

func (f *fakePublisher) Publish(ctx context.Context, t *models.Tick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, t)
	return nil
}

func (f *fakePublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	for _, t := range ticks {
		if err := f.Publish(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakePublisher) Topic() string { return "test.ticks" }

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newProcessor(t *testing.T, pub *fakePublisher) (*TickProcessor, *tickbuffer.Buffer, *resampler.Resampler) {
	t.Helper()
	buf := tickbuffer.New(tickbuffer.WithTolerance(2 * time.Second))
	res := resampler.New(resampler.WithIntervals(time.Second, time.Minute))
	if pub == nil {
		return NewTickProcessor(buf, res, nil, nopMetrics{}, testLogger(t), "binance"), buf, res
	}
	return NewTickProcessor(buf, res, pub, nopMetrics{}, testLogger(t), "binance"), buf, res
}

func TestIngestStoresAndResamples(t *testing.T) {
	proc, buf, res := newProcessor(t, nil)

	tick := &models.Tick{Symbol: "BTCUSDT", Timestamp: 60_000, Price: 100, Volume: 1}
	if err := proc.Ingest(context.Background(), tick); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if buf.Len("BTCUSDT") != 1 {
		t.Fatalf("buffer len = %d, want 1", buf.Len("BTCUSDT"))
	}
	bars := res.Series("BTCUSDT", time.Second)
	if len(bars) != 1 || bars[0].Close != 100 {
		t.Fatalf("series = %+v, want one open bar at 100", bars)
	}
}

func TestIngestDropsOutOfOrderSilently(t *testing.T) {
	proc, buf, _ := newProcessor(t, nil)

	ctx := context.Background()
	if err := proc.Ingest(ctx, &models.Tick{Symbol: "BTCUSDT", Timestamp: 60_000, Price: 100, Volume: 1}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// older than latest minus tolerance: rejected by the buffer, but
	// the drop is not an ingestion failure
	if err := proc.Ingest(ctx, &models.Tick{Symbol: "BTCUSDT", Timestamp: 10_000, Price: 99, Volume: 1}); err != nil {
		t.Fatalf("out-of-order drop should not error: %v", err)
	}
	if buf.Len("BTCUSDT") != 1 {
		t.Fatalf("buffer len = %d, want 1", buf.Len("BTCUSDT"))
	}
}

func TestIngestNilTick(t *testing.T) {
	proc, _, _ := newProcessor(t, nil)
	if err := proc.Ingest(context.Background(), nil); err == nil {
		t.Fatal("nil tick should error")
	}
}

func TestPublishTees(t *testing.T) {
	pub := &fakePublisher{}
	proc, _, _ := newProcessor(t, pub)

	tick := &models.Tick{Symbol: "BTCUSDT", Timestamp: 60_000, Price: 100, Volume: 1}
	if err := proc.Publish(context.Background(), tick); err != nil {
		t.Fatalf("publish: %v", err)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.published))
	}
}

func TestPublishWithoutPublisherIsNoop(t *testing.T) {
	proc, _, _ := newProcessor(t, nil)
	if err := proc.Publish(context.Background(), &models.Tick{Symbol: "X", Timestamp: 1, Price: 1}); err != nil {
		t.Fatalf("publish without tee: %v", err)
	}
}

func TestPublishErrorSurfaces(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	proc, _, _ := newProcessor(t, pub)
	if err := proc.Publish(context.Background(), &models.Tick{Symbol: "X", Timestamp: 1, Price: 1}); err == nil {
		t.Fatal("publish failure should surface for the retry buffer")
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	proc, _, _ := newProcessor(t, pub)
	proc.Close()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}
