package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PairWatch/internal/domain/models"
)

type fakeProc struct {
	mu         sync.Mutex
	ingested   []*models.Tick
	published  []*models.Tick
	ingestErr  error
	publishErr error
}

func (f *fakeProc) Ingest(ctx context.Context, t *models.Tick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return f.ingestErr
	}
	f.ingested = append(f.ingested, t)
	return nil
}

func (f *fakeProc) Publish(ctx context.Context, t *models.Tick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, t)
	return nil
}

func (f *fakeProc) setPublishErr(err error) {
	f.mu.Lock()
	f.publishErr = err
	f.mu.Unlock()
}

func (f *fakeProc) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ingested), len(f.published)
}

type countMetrics struct {
	mu   sync.Mutex
	errs map[string]int
}

func newCountMetrics() *countMetrics { return &countMetrics{errs: make(map[string]int)} }

func (m *countMetrics) RecordTickIngested(source, symbol string)        {}
func (m *countMetrics) RecordTickPublished(topic, symbol string)        {}
func (m *countMetrics) RecordBarsSealed(symbol, interval string, n int) {}
func (m *countMetrics) RecordLastPrice(symbol string, price float64)    {}
func (m *countMetrics) RecordLatency(op string, seconds float64)        {}
func (m *countMetrics) RecordAlertTriggered(rule string)                {}

func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}

func (m *countMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[kind]
}

func validTick(ts int64) *models.Tick {
	return &models.Tick{Symbol: "BTCUSDT", Timestamp: ts, Price: 100, Volume: 1}
}

func TestProcessRejectsInvalidTicks(t *testing.T) {
	proc := &fakeProc{}
	m := newCountMetrics()
	p := NewTickPipeline(proc, m)

	bad := []*models.Tick{
		nil,
		{Symbol: "", Timestamp: 1, Price: 1, Volume: 1},
		{Symbol: "BTCUSDT", Timestamp: 0, Price: 1, Volume: 1},
		{Symbol: "BTCUSDT", Timestamp: 1, Price: 0, Volume: 1},
		{Symbol: "BTCUSDT", Timestamp: 1, Price: 1, Volume: -1},
	}
	for i, tick := range bad {
		if err := p.Process(context.Background(), tick); err == nil {
			t.Fatalf("case %d: want validation error", i)
		}
	}
	if got, _ := proc.counts(); got != 0 {
		t.Fatalf("ingested %d invalid ticks", got)
	}
	if m.errCount("pipeline_validate") != len(bad) {
		t.Fatalf("pipeline_validate = %d, want %d", m.errCount("pipeline_validate"), len(bad))
	}
}

func TestProcessThrottlesPerSymbol(t *testing.T) {
	proc := &fakeProc{}
	m := newCountMetrics()
	p := NewTickPipeline(proc, m, WithMaxRPS(2))

	for i := 0; i < 5; i++ {
		if err := p.Process(context.Background(), validTick(int64(i+1))); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	ingested, _ := proc.counts()
	if ingested > 3 {
		t.Fatalf("ingested = %d, want at most burst capacity", ingested)
	}
	if m.errCount("pipeline_throttle") == 0 {
		t.Fatal("expected throttled ticks")
	}
}

func TestThrottleIsPerSymbol(t *testing.T) {
	proc := &fakeProc{}
	m := newCountMetrics()
	p := NewTickPipeline(proc, m, WithMaxRPS(1))

	a := &models.Tick{Symbol: "AAA", Timestamp: 1, Price: 1, Volume: 1}
	b := &models.Tick{Symbol: "BBB", Timestamp: 1, Price: 1, Volume: 1}
	_ = p.Process(context.Background(), a)
	_ = p.Process(context.Background(), b)

	if ingested, _ := proc.counts(); ingested != 2 {
		t.Fatalf("ingested = %d, want 2 (independent buckets)", ingested)
	}
}

func TestIngestErrorPropagates(t *testing.T) {
	proc := &fakeProc{ingestErr: errors.New("boom")}
	m := newCountMetrics()
	p := NewTickPipeline(proc, m)

	if err := p.Process(context.Background(), validTick(1)); err == nil {
		t.Fatal("want ingest error")
	}
	if m.errCount("pipeline_ingest") != 1 {
		t.Fatalf("pipeline_ingest = %d, want 1", m.errCount("pipeline_ingest"))
	}
}

func TestPublishFailureBuffersAndRetries(t *testing.T) {
	proc := &fakeProc{}
	proc.setPublishErr(errors.New("kafka down"))
	m := newCountMetrics()
	p := NewTickPipeline(proc, m, WithBufferSize(10))

	// publish failure is not an ingestion failure
	if err := p.Process(context.Background(), validTick(1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	ingested, published := proc.counts()
	if ingested != 1 || published != 0 {
		t.Fatalf("ingested=%d published=%d, want 1/0", ingested, published)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	proc.setPublishErr(nil)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, published := proc.counts(); published == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("buffered tick never flushed")
}

func TestRetryNeverReingests(t *testing.T) {
	proc := &fakeProc{}
	proc.setPublishErr(errors.New("kafka down"))
	m := newCountMetrics()
	p := NewTickPipeline(proc, m, WithBufferSize(10))

	if err := p.Process(context.Background(), validTick(1)); err != nil {
		t.Fatalf("process: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()
	proc.setPublishErr(nil)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, published := proc.counts(); published == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if ingested, _ := proc.counts(); ingested != 1 {
		t.Fatalf("ingested = %d after retry, want 1", ingested)
	}
}

func TestTransformRewritesTick(t *testing.T) {
	proc := &fakeProc{}
	m := newCountMetrics()
	p := NewTickPipeline(proc, m, WithTransform(func(tk *models.Tick) *models.Tick {
		out := *tk
		out.Symbol = "X:" + tk.Symbol
		return &out
	}))

	if err := p.Process(context.Background(), validTick(1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.ingested) != 1 || proc.ingested[0].Symbol != "X:BTCUSDT" {
		t.Fatalf("transform not applied: %+v", proc.ingested)
	}
}
