package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"PairWatch/internal/domain/models"
	"PairWatch/internal/market/resampler"
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

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// feedPair seals len(closesA) bars for both symbols at 1s resolution.
// One extra tick past the end seals the final bar.
func feedPair(t *testing.T, r *resampler.Resampler, closesA, closesB []float64) {
	t.Helper()
	base := int64(1_000)
	for i := range closesA {
		ts := base + int64(i)*1_000
		if err := r.Ingest(models.Tick{Symbol: "AAA", Timestamp: ts, Price: closesA[i], Volume: 1}); err != nil {
			t.Fatalf("ingest A[%d]: %v", i, err)
		}
		if err := r.Ingest(models.Tick{Symbol: "BBB", Timestamp: ts, Price: closesB[i], Volume: 1}); err != nil {
			t.Fatalf("ingest B[%d]: %v", i, err)
		}
	}
	ts := base + int64(len(closesA))*1_000
	if err := r.Ingest(models.Tick{Symbol: "AAA", Timestamp: ts, Price: closesA[len(closesA)-1], Volume: 1}); err != nil {
		t.Fatalf("ingest A seal: %v", err)
	}
	if err := r.Ingest(models.Tick{Symbol: "BBB", Timestamp: ts, Price: closesB[len(closesB)-1], Volume: 1}); err != nil {
		t.Fatalf("ingest B seal: %v", err)
	}
}

func TestSnapshotExactLinearPair(t *testing.T) {
	r := resampler.New(resampler.WithIntervals(time.Second))
	feedPair(t, r,
		[]float64{10, 12, 14, 16, 18}, // A = 2*B
		[]float64{5, 6, 7, 8, 9},
	)
	e := NewEngine(r, testLogger(t), nopMetrics{}, WithWindow(3))

	snap := e.Snapshot("AAA", "BBB", time.Second, 3)

	if snap.HedgeRatio == nil {
		t.Fatal("hedge ratio missing")
	}
	if !almostEqual(*snap.HedgeRatio, 2, 1e-9) {
		t.Fatalf("hedge ratio = %v, want 2", *snap.HedgeRatio)
	}
	if len(snap.Points) != 5 {
		t.Fatalf("got %d points, want 5", len(snap.Points))
	}

	// fewer than window bars of history: no ratio, no spread
	for i := 0; i < 2; i++ {
		if snap.Points[i].Spread != nil {
			t.Fatalf("point %d has spread before window filled", i)
		}
	}
	for i := 2; i < 5; i++ {
		p := snap.Points[i]
		if p.Spread == nil {
			t.Fatalf("point %d missing spread", i)
		}
		if !almostEqual(*p.Spread, 0, 1e-9) {
			t.Fatalf("point %d spread = %v, want 0", i, *p.Spread)
		}
		// flat spread window has zero variance: z-score must be
		// missing, not zero
		if p.ZScore != nil {
			t.Fatalf("point %d zscore = %v, want missing on zero variance", i, *p.ZScore)
		}
		if p.Correlation == nil {
			t.Fatalf("point %d correlation missing", i)
		}
		if !almostEqual(*p.Correlation, 1, 1e-9) {
			t.Fatalf("point %d correlation = %v, want 1", i, *p.Correlation)
		}
	}
}

func TestSnapshotOpenBarExcluded(t *testing.T) {
	r := resampler.New(resampler.WithIntervals(time.Second))
	feedPair(t, r, []float64{10, 12, 14}, []float64{5, 6, 7})
	e := NewEngine(r, testLogger(t), nopMetrics{}, WithWindow(2))

	snap := e.Snapshot("AAA", "BBB", time.Second, 2)

	// 3 sealed bars; the trailing open bar must not contribute a point
	if len(snap.Points) != 3 {
		t.Fatalf("got %d points, want 3 (sealed bars only)", len(snap.Points))
	}
}

func TestSpreadTrailNotBackfilled(t *testing.T) {
	r := resampler.New(resampler.WithIntervals(time.Second))
	feedPair(t, r, []float64{10, 12, 14, 16}, []float64{5, 6, 7, 8})
	e := NewEngine(r, testLogger(t), nopMetrics{}, WithWindow(3))

	first := e.Snapshot("AAA", "BBB", time.Second, 3)

	// the relation shifts: A decouples from 2*B
	base := int64(1_000) + 5*1_000
	for i := 0; i < 4; i++ {
		ts := base + int64(i)*1_000
		if err := r.Ingest(models.Tick{Symbol: "AAA", Timestamp: ts, Price: 30 + float64(i)*3, Volume: 1}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if err := r.Ingest(models.Tick{Symbol: "BBB", Timestamp: ts, Price: 9 + float64(i), Volume: 1}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	second := e.Snapshot("AAA", "BBB", time.Second, 3)
	if len(second.Points) <= len(first.Points) {
		t.Fatalf("trail did not advance: %d -> %d", len(first.Points), len(second.Points))
	}
	for i, p := range first.Points {
		q := second.Points[i]
		if p.Timestamp != q.Timestamp {
			t.Fatalf("point %d timestamp rewritten", i)
		}
		if (p.Spread == nil) != (q.Spread == nil) {
			t.Fatalf("point %d spread presence rewritten", i)
		}
		if p.Spread != nil && *p.Spread != *q.Spread {
			t.Fatalf("point %d spread backfilled: %v -> %v", i, *p.Spread, *q.Spread)
		}
	}
}

func TestWindowChangeResetsTrail(t *testing.T) {
	r := resampler.New(resampler.WithIntervals(time.Second))
	feedPair(t, r, []float64{10, 12, 14, 16, 18}, []float64{5, 6, 7, 8, 9})
	e := NewEngine(r, testLogger(t), nopMetrics{})

	a := e.Snapshot("AAA", "BBB", time.Second, 3)
	b := e.Snapshot("AAA", "BBB", time.Second, 4)

	if a.Window != 3 || b.Window != 4 {
		t.Fatalf("windows = %d/%d, want 3/4", a.Window, b.Window)
	}
	// with window 4 the first computable spread moves one bar later
	if b.Points[2].Spread != nil {
		t.Fatal("window 4 trail has spread at point 2")
	}
	if b.Points[3].Spread == nil {
		t.Fatal("window 4 trail missing spread at point 3")
	}
}

func TestRunADFInsufficientDataKeepsPriorResult(t *testing.T) {
	r := resampler.New(resampler.WithIntervals(time.Second))

	// noisy but cointegrated pair, enough bars for the test
	n := 40
	closesA := make([]float64, n)
	closesB := make([]float64, n)
	for i := 0; i < n; i++ {
		closesB[i] = 10 + math.Sin(float64(i)*1.7)
		closesA[i] = 2*closesB[i] + 0.3*math.Sin(float64(i)*2.3)
	}
	feedPair(t, r, closesA, closesB)

	e := NewEngine(r, testLogger(t), nopMetrics{}, WithWindow(3), WithMinObservations(10))

	res, err := e.RunADF("AAA", "BBB", time.Second, 3)
	if err != nil {
		t.Fatalf("adf: %v", err)
	}
	if res.Observations < 10 {
		t.Fatalf("observations = %d", res.Observations)
	}

	// a window larger than the sealed history leaves no spread points,
	// so the next run fails; the stored result must survive
	_, err = e.RunADF("AAA", "BBB", time.Second, 100)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}

	snap := e.Snapshot("AAA", "BBB", time.Second, 100)
	if snap.ADF == nil {
		t.Fatal("prior adf result lost after failed run")
	}
	if snap.ADF.Statistic != res.Statistic {
		t.Fatalf("adf result changed: %v -> %v", res.Statistic, snap.ADF.Statistic)
	}
}

func TestSnapshotNoOverlapBetweenSymbols(t *testing.T) {
	r := resampler.New(resampler.WithIntervals(time.Second))
	// only one leg has data
	if err := r.Ingest(models.Tick{Symbol: "AAA", Timestamp: 1_000, Price: 10, Volume: 1}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	e := NewEngine(r, testLogger(t), nopMetrics{}, WithWindow(3))

	snap := e.Snapshot("AAA", "BBB", time.Second, 3)
	if snap.HedgeRatio != nil {
		t.Fatal("hedge ratio reported with no overlapping bars")
	}
	if len(snap.Points) != 0 {
		t.Fatalf("got %d points, want 0", len(snap.Points))
	}
}
