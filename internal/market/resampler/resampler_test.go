package resampler

import (
	"errors"
	"testing"
	"time"

	"PairWatch/internal/domain/models"
)

func tick(ts int64, price, vol float64) models.Tick {
	return models.Tick{Symbol: "BTCUSDT", Timestamp: ts, Price: price, Volume: vol}
}

func TestFirstTickSeedsOpenBar(t *testing.T) {
	r := New(WithIntervals(time.Second))

	if err := r.Ingest(tick(1_500, 42, 3)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	bars := r.Series("BTCUSDT", time.Second)
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	b := bars[0]
	if b.Start != 1_000 {
		t.Fatalf("start = %d, want 1000 (floor aligned)", b.Start)
	}
	if b.Open != 42 || b.High != 42 || b.Low != 42 || b.Close != 42 {
		t.Fatalf("seed bar OHLC = %v/%v/%v/%v, want all 42", b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume != 3 {
		t.Fatalf("volume = %v, want 3", b.Volume)
	}
	if !b.IsOpen {
		t.Fatal("trailing bar must carry is_open")
	}
}

func TestOpenBarRecomputedInPlace(t *testing.T) {
	r := New(WithIntervals(time.Second))

	for _, tk := range []models.Tick{
		tick(1_000, 10, 1),
		tick(1_200, 14, 2),
		tick(1_400, 8, 1),
		tick(1_600, 12, 1),
	} {
		if err := r.Ingest(tk); err != nil {
			t.Fatalf("ingest %d: %v", tk.Timestamp, err)
		}
	}

	bars := r.Series("BTCUSDT", time.Second)
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	b := bars[0]
	if b.Open != 10 || b.High != 14 || b.Low != 8 || b.Close != 12 {
		t.Fatalf("OHLC = %v/%v/%v/%v, want 10/14/8/12", b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume != 5 {
		t.Fatalf("volume = %v, want 5", b.Volume)
	}
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		t.Fatal("OHLC bounds violated")
	}
}

func TestBoundaryCrossSealsBar(t *testing.T) {
	r := New(WithIntervals(time.Second))

	if err := r.Ingest(tick(1_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := r.Ingest(tick(2_000, 11, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	bars := r.Series("BTCUSDT", time.Second)
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if bars[0].IsOpen || bars[0].Synthetic {
		t.Fatalf("sealed bar flags = open:%v synthetic:%v", bars[0].IsOpen, bars[0].Synthetic)
	}
	if !bars[1].IsOpen {
		t.Fatal("new trailing bar must be open")
	}
	if bars[1].Start-bars[0].Start != 1_000 {
		t.Fatalf("starts advance by %dms, want 1000", bars[1].Start-bars[0].Start)
	}
}

func TestGapFillSynthesizesCarryForwardBars(t *testing.T) {
	r := New(WithIntervals(time.Second))

	if err := r.Ingest(tick(1_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// next tick skips buckets 2000 and 3000 entirely
	if err := r.Ingest(tick(4_200, 15, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	bars := r.Series("BTCUSDT", time.Second)
	if len(bars) != 4 {
		t.Fatalf("got %d bars, want 4", len(bars))
	}
	for i, b := range bars[1:3] {
		if !b.Synthetic {
			t.Fatalf("gap bar %d not synthetic", i)
		}
		if b.Open != 10 || b.High != 10 || b.Low != 10 || b.Close != 10 {
			t.Fatalf("gap bar %d OHLC = %v/%v/%v/%v, want carried close 10",
				i, b.Open, b.High, b.Low, b.Close)
		}
		if b.Volume != 0 {
			t.Fatalf("gap bar %d volume = %v, want 0", i, b.Volume)
		}
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Start-bars[i-1].Start != 1_000 {
			t.Fatalf("gap between bars %d and %d", i-1, i)
		}
	}
}

func TestStaleTickRejectedWithoutMutation(t *testing.T) {
	r := New(WithIntervals(time.Second))

	if err := r.Ingest(tick(1_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := r.Ingest(tick(3_000, 12, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	before := r.Series("BTCUSDT", time.Second)

	err := r.Ingest(tick(1_500, 99, 9))
	if !errors.Is(err, ErrStaleTick) {
		t.Fatalf("err = %v, want ErrStaleTick", err)
	}

	after := r.Series("BTCUSDT", time.Second)
	if len(after) != len(before) {
		t.Fatalf("stale tick changed bar count %d -> %d", len(before), len(after))
	}
	for i := range after {
		if after[i] != before[i] {
			t.Fatalf("stale tick mutated bar %d: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestStaleForOneIntervalStillUpdatesWider(t *testing.T) {
	r := New(WithIntervals(time.Second, time.Minute))

	if err := r.Ingest(tick(10_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := r.Ingest(tick(12_000, 11, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// 10s bucket is sealed for the 1s series but the minute bar is still open
	err := r.Ingest(tick(10_500, 20, 1))
	if !errors.Is(err, ErrStaleTick) {
		t.Fatalf("err = %v, want ErrStaleTick for the 1s series", err)
	}

	minute := r.Series("BTCUSDT", time.Minute)
	if len(minute) != 1 {
		t.Fatalf("got %d minute bars, want 1", len(minute))
	}
	if minute[0].High != 20 {
		t.Fatalf("minute high = %v, want 20 (tick applied to open minute bar)", minute[0].High)
	}
	if minute[0].Close != 11 {
		t.Fatalf("minute close = %v, want 11 (late tick must not move close)", minute[0].Close)
	}
}

func TestDuplicateTimestampMovesClose(t *testing.T) {
	r := New(WithIntervals(time.Second))

	if err := r.Ingest(tick(1_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := r.Ingest(tick(1_000, 13, 1)); err != nil {
		t.Fatalf("ingest duplicate: %v", err)
	}

	bars := r.Series("BTCUSDT", time.Second)
	if bars[0].Close != 13 {
		t.Fatalf("close = %v, want 13 (last write wins)", bars[0].Close)
	}
}

func TestSealedExcludesOpenBar(t *testing.T) {
	r := New(WithIntervals(time.Second))

	if err := r.Ingest(tick(1_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := r.Ingest(tick(2_000, 11, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	sealed := r.Sealed("BTCUSDT", time.Second)
	if len(sealed) != 1 {
		t.Fatalf("got %d sealed bars, want 1", len(sealed))
	}
	if sealed[0].IsOpen {
		t.Fatal("sealed snapshot must not contain the open bar")
	}
}

func TestSealHookObservesSealedCounts(t *testing.T) {
	type sealCall struct {
		symbol   string
		interval time.Duration
		sealed   int
	}
	var calls []sealCall
	r := New(WithIntervals(time.Second), WithSealHook(func(symbol string, interval time.Duration, sealed int) {
		calls = append(calls, sealCall{symbol, interval, sealed})
	}))

	if err := r.Ingest(tick(1_000, 10, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("hook fired on seed: %+v", calls)
	}

	// plain boundary cross seals one bar
	if err := r.Ingest(tick(2_000, 11, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// gap seals the open bar plus two synthetic fills
	if err := r.Ingest(tick(5_000, 12, 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("got %d hook calls, want 2: %+v", len(calls), calls)
	}
	if calls[0] != (sealCall{"BTCUSDT", time.Second, 1}) {
		t.Fatalf("first call = %+v, want 1 sealed bar", calls[0])
	}
	if calls[1] != (sealCall{"BTCUSDT", time.Second, 3}) {
		t.Fatalf("second call = %+v, want 3 sealed bars (fills included)", calls[1])
	}
}

func TestMaxBarsTrimsOldest(t *testing.T) {
	r := New(WithIntervals(time.Second), WithMaxBars(3))

	for i := int64(0); i < 10; i++ {
		if err := r.Ingest(tick(i*1_000, float64(i), 1)); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	sealed := r.Sealed("BTCUSDT", time.Second)
	if len(sealed) != 3 {
		t.Fatalf("got %d sealed bars, want 3", len(sealed))
	}
	if sealed[0].Start != 6_000 {
		t.Fatalf("oldest kept bar starts at %d, want 6000", sealed[0].Start)
	}
}
