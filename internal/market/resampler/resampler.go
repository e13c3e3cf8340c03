package resampler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"PairWatch/internal/domain/models"
)

// ErrStaleTick is returned when a tick falls into an interval that has
// already been sealed. The tick is rejected for that series without
// mutating any state.
var ErrStaleTick = errors.New("tick belongs to a sealed interval")

// Option configures Resampler.
type Option func(*Resampler)

// WithIntervals sets the bucket widths maintained for every symbol.
func WithIntervals(intervals ...time.Duration) Option {
	return func(r *Resampler) {
		if len(intervals) > 0 {
			r.intervals = intervals
		}
	}
}

// WithMaxBars caps the number of sealed bars kept per series. Oldest
// bars are dropped first. Zero means unbounded.
func WithMaxBars(n int) Option {
	return func(r *Resampler) { r.maxBars = n }
}

// WithSealHook installs an observer called after bars seal, with the
// number of bars sealed by that ingest (synthetic fills included). The
// hook runs under the symbol lock and must not call back in.
func WithSealHook(fn func(symbol string, interval time.Duration, sealed int)) Option {
	return func(r *Resampler) { r.sealHook = fn }
}

// Resampler folds raw ticks into OHLCV series, one series per
// (symbol, interval). The trailing bar of each series stays open and is
// recomputed in place until a tick crosses the interval boundary, which
// seals it. Intervals skipped entirely are filled with synthetic bars
// carrying the previous close forward at zero volume, so sealed bar
// starts always advance by exactly one interval width.
type Resampler struct {
	intervals []time.Duration
	maxBars   int
	sealHook  func(symbol string, interval time.Duration, sealed int)

	mu      sync.RWMutex
	symbols map[string]*symbolSeries
}

type symbolSeries struct {
	mu     sync.Mutex
	series map[time.Duration]*series
}

type series struct {
	width  time.Duration
	sealed []models.Bar
	open   *models.Bar
	lastTs int64 // timestamp of the tick that last set open.Close
}

// New creates a resampler. Default intervals: 1s, 1m, 5m.
func New(opts ...Option) *Resampler {
	r := &Resampler{
		intervals: []time.Duration{time.Second, time.Minute, 5 * time.Minute},
		symbols:   make(map[string]*symbolSeries),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Intervals returns the configured bucket widths.
func (r *Resampler) Intervals() []time.Duration {
	out := make([]time.Duration, len(r.intervals))
	copy(out, r.intervals)
	return out
}

// BucketStart floor-aligns a millisecond timestamp to the interval grid.
func BucketStart(ts int64, width time.Duration) int64 {
	w := width.Milliseconds()
	return ts - ts%w
}

func (r *Resampler) symbol(symbol string) *symbolSeries {
	r.mu.RLock()
	ss, ok := r.symbols[symbol]
	r.mu.RUnlock()
	if ok {
		return ss
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ss, ok = r.symbols[symbol]; ok {
		return ss
	}
	ss = &symbolSeries{series: make(map[time.Duration]*series)}
	for _, w := range r.intervals {
		ss.series[w] = &series{width: w}
	}
	r.symbols[symbol] = ss
	return ss
}

// Ingest folds one tick into every configured interval of its symbol.
// Series whose open interval has already moved past the tick reject it;
// the others still update. The returned error wraps ErrStaleTick when at
// least one series rejected the tick.
func (r *Resampler) Ingest(tick models.Tick) error {
	ss := r.symbol(tick.Symbol)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	var errs []error
	for _, w := range r.intervals {
		if err := r.ingestSeries(ss.series[w], tick); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Resampler) ingestSeries(s *series, tick models.Tick) error {
	start := BucketStart(tick.Timestamp, s.width)

	if s.open == nil {
		s.open = seedBar(start, tick)
		s.lastTs = tick.Timestamp
		return nil
	}

	switch {
	case start < s.open.Start:
		return fmt.Errorf("%w: %s tick at %d, %s bucket %d already sealed (open bucket %d)",
			ErrStaleTick, tick.Symbol, tick.Timestamp, s.width, start, s.open.Start)

	case start == s.open.Start:
		s.updateOpen(tick)
		return nil

	default:
		before := len(s.sealed)
		s.seal(start)
		if r.sealHook != nil {
			r.sealHook(tick.Symbol, s.width, len(s.sealed)-before)
		}
		s.open = seedBar(start, tick)
		s.lastTs = tick.Timestamp
		r.trim(s)
		return nil
	}
}

func seedBar(start int64, tick models.Tick) *models.Bar {
	return &models.Bar{
		Start:  start,
		Open:   tick.Price,
		High:   tick.Price,
		Low:    tick.Price,
		Close:  tick.Price,
		Volume: tick.Volume,
	}
}

// updateOpen recomputes the open bar in place. Close tracks the tick
// with the greatest timestamp seen so far, so a tolerated slightly-late
// tick widens high/low and adds volume without moving the close.
func (s *series) updateOpen(tick models.Tick) {
	if tick.Price > s.open.High {
		s.open.High = tick.Price
	}
	if tick.Price < s.open.Low {
		s.open.Low = tick.Price
	}
	s.open.Volume += tick.Volume
	if tick.Timestamp >= s.lastTs {
		s.open.Close = tick.Price
		s.lastTs = tick.Timestamp
	}
}

// seal closes the open bar and fills every skipped interval up to (not
// including) nextStart with a synthetic carry-forward bar.
func (s *series) seal(nextStart int64) {
	s.sealed = append(s.sealed, *s.open)
	w := s.width.Milliseconds()
	for start := s.open.Start + w; start < nextStart; start += w {
		prev := s.sealed[len(s.sealed)-1].Close
		s.sealed = append(s.sealed, models.Bar{
			Start:     start,
			Open:      prev,
			High:      prev,
			Low:       prev,
			Close:     prev,
			Volume:    0,
			Synthetic: true,
		})
	}
	s.open = nil
}

func (r *Resampler) trim(s *series) {
	if r.maxBars > 0 && len(s.sealed) > r.maxBars {
		s.sealed = append(s.sealed[:0], s.sealed[len(s.sealed)-r.maxBars:]...)
	}
}

// Series returns a snapshot of the bars for (symbol, interval), sealed
// bars first, the open bar (if any) last with IsOpen set. The snapshot
// is a copy; the caller may keep or mutate it freely.
func (r *Resampler) Series(symbol string, interval time.Duration) []models.Bar {
	ss := r.symbol(symbol)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.series[interval]
	if !ok {
		return nil
	}
	out := make([]models.Bar, len(s.sealed), len(s.sealed)+1)
	copy(out, s.sealed)
	if s.open != nil {
		open := *s.open
		open.IsOpen = true
		out = append(out, open)
	}
	return out
}

// Sealed returns a snapshot of only the sealed bars for (symbol, interval).
func (r *Resampler) Sealed(symbol string, interval time.Duration) []models.Bar {
	ss := r.symbol(symbol)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.series[interval]
	if !ok {
		return nil
	}
	out := make([]models.Bar, len(s.sealed))
	copy(out, s.sealed)
	return out
}
