package tickbuffer

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"PairWatch/internal/domain/models"
)

// ErrOutOfOrder is returned when a tick is older than the newest stored
// tick for its symbol by more than the configured tolerance. The tick is
// discarded; the buffer is not mutated.
var ErrOutOfOrder = errors.New("tick out of order")

// Option configures Buffer.
type Option func(*Buffer)

// WithTolerance sets how far behind the newest stored timestamp a tick
// may be and still be accepted (feed jitter allowance).
func WithTolerance(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.tolerance = d
		}
	}
}

// WithRetention sets the retention horizon. Ticks older than the newest
// stored timestamp minus the horizon are pruned opportunistically after
// each append. The horizon is relative to observed time, not wall clock,
// so replayed history behaves the same as live data.
func WithRetention(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.retention = d
		}
	}
}

// Buffer stores raw ticks per symbol in timestamp order. Each symbol has
// its own lock; appends for different symbols never contend.
type Buffer struct {
	tolerance time.Duration
	retention time.Duration

	mu      sync.RWMutex
	symbols map[string]*symbolBuffer
}

type symbolBuffer struct {
	mu    sync.Mutex
	ticks []models.Tick // ascending by Timestamp, unique timestamps
}

// New creates a tick buffer. Defaults: 2s tolerance, 1h retention.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		tolerance: 2 * time.Second,
		retention: time.Hour,
		symbols:   make(map[string]*symbolBuffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) symbol(symbol string) *symbolBuffer {
	b.mu.RLock()
	sb, ok := b.symbols[symbol]
	b.mu.RUnlock()
	if ok {
		return sb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if sb, ok = b.symbols[symbol]; ok {
		return sb
	}
	sb = &symbolBuffer{}
	b.symbols[symbol] = sb
	return sb
}

// Append stores a tick. Ticks behind the newest stored timestamp by more
// than the tolerance are rejected with ErrOutOfOrder. A tick with a
// timestamp equal to a stored one replaces it (last write wins). After a
// successful append the symbol's history is pruned against the retention
// horizon.
func (b *Buffer) Append(tick models.Tick) error {
	sb := b.symbol(tick.Symbol)

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if n := len(sb.ticks); n > 0 {
		latest := sb.ticks[n-1].Timestamp
		if tick.Timestamp < latest-b.tolerance.Milliseconds() {
			return fmt.Errorf("%w: %s tick at %d is %dms behind latest %d",
				ErrOutOfOrder, tick.Symbol, tick.Timestamp, latest-tick.Timestamp, latest)
		}
	}

	i := sort.Search(len(sb.ticks), func(i int) bool {
		return sb.ticks[i].Timestamp >= tick.Timestamp
	})
	switch {
	case i < len(sb.ticks) && sb.ticks[i].Timestamp == tick.Timestamp:
		sb.ticks[i] = tick
	case i == len(sb.ticks):
		sb.ticks = append(sb.ticks, tick)
	default:
		sb.ticks = append(sb.ticks, models.Tick{})
		copy(sb.ticks[i+1:], sb.ticks[i:])
		sb.ticks[i] = tick
	}

	b.prune(sb)
	return nil
}

// prune drops ticks older than the retention horizon. Caller holds sb.mu.
func (b *Buffer) prune(sb *symbolBuffer) {
	n := len(sb.ticks)
	if n == 0 || b.retention <= 0 {
		return
	}
	cutoff := sb.ticks[n-1].Timestamp - b.retention.Milliseconds()
	i := sort.Search(n, func(i int) bool {
		return sb.ticks[i].Timestamp >= cutoff
	})
	if i > 0 {
		sb.ticks = append(sb.ticks[:0], sb.ticks[i:]...)
	}
}

// Range returns a restartable iterator over the ticks of symbol with
// from <= Timestamp < to (milliseconds), in ascending timestamp order.
// The iterator walks a snapshot taken at call time; later appends are
// not visible to it.
func (b *Buffer) Range(symbol string, from, to int64) iter.Seq[models.Tick] {
	snap := b.snapshot(symbol, from, to)
	return func(yield func(models.Tick) bool) {
		for _, t := range snap {
			if !yield(t) {
				return
			}
		}
	}
}

func (b *Buffer) snapshot(symbol string, from, to int64) []models.Tick {
	sb := b.symbol(symbol)

	sb.mu.Lock()
	defer sb.mu.Unlock()

	lo := sort.Search(len(sb.ticks), func(i int) bool {
		return sb.ticks[i].Timestamp >= from
	})
	hi := sort.Search(len(sb.ticks), func(i int) bool {
		return sb.ticks[i].Timestamp >= to
	})
	if lo >= hi {
		return nil
	}
	out := make([]models.Tick, hi-lo)
	copy(out, sb.ticks[lo:hi])
	return out
}

// Len reports the number of stored ticks for symbol.
func (b *Buffer) Len(symbol string) int {
	sb := b.symbol(symbol)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.ticks)
}

// Latest returns the newest stored tick for symbol, if any.
func (b *Buffer) Latest(symbol string) (models.Tick, bool) {
	sb := b.symbol(symbol)
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if len(sb.ticks) == 0 {
		return models.Tick{}, false
	}
	return sb.ticks[len(sb.ticks)-1], true
}
