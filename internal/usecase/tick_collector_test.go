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
)

// fakeStream hands out a fresh channel pair per Read call, the way the
// real client does, and fails Reconnect a configurable number of times.
type fakeStream struct {
	mu          sync.Mutex
	failRedials int
	reconnects  int
	reads       int
	connected   bool
	tickCh      chan *models.Tick
	errCh       chan error
}

func (f *fakeStream) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeStream) Subscribe(ctx context.Context) error { return nil }

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.tickCh = make(chan *models.Tick, 8)
	f.errCh = make(chan error, 1)
	return f.tickCh, f.errCh
}

func (f *fakeStream) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.failRedials > 0 {
		f.failRedials--
		// the real client paces attempts with its reconnect delay
		time.Sleep(time.Millisecond)
		return errors.New("redial failed")
	}
	f.connected = true
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStream) channels() (chan *models.Tick, chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickCh, f.errCh
}

func (f *fakeStream) counts() (reads, reconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.reconnects
}

func startCollector(t *testing.T, ctx context.Context, fs *fakeStream) (*TickCollector, *tickbuffer.Buffer) {
	t.Helper()
	buf := tickbuffer.New(tickbuffer.WithTolerance(2 * time.Second))
	res := resampler.New(resampler.WithIntervals(time.Second))
	proc := NewTickProcessor(buf, res, nil, nopMetrics{}, testLogger(t), "binance")
	col := NewTickCollector(fs, proc, nopMetrics{}, nil)
	if err := col.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	return col, buf
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConsumeRedialsUntilStreamIsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fs := &fakeStream{failRedials: 2}
	_, buf := startCollector(t, ctx, fs)

	// kill the first stream: error, then both channels close, the way
	// the read goroutine exits
	tickCh, errCh := fs.channels()
	errCh <- errors.New("socket gone")
	close(errCh)
	close(tickCh)

	// two failed redials must not stop the collector
	waitFor(t, "second Read", func() bool {
		reads, _ := fs.counts()
		return reads == 2
	})
	_, reconnects := fs.counts()
	if reconnects != 3 {
		t.Fatalf("reconnects = %d, want 3 (2 failures + 1 success)", reconnects)
	}

	// the replacement stream must feed the processor again
	tickCh, _ = fs.channels()
	tickCh <- &models.Tick{Symbol: "BTCUSDT", Timestamp: 60_000, Price: 100, Volume: 1}
	waitFor(t, "tick after redial", func() bool {
		return buf.Len("BTCUSDT") == 1
	})
}

func TestConsumeStopsRedialingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fs := &fakeStream{failRedials: 1 << 30} // never succeeds
	startCollector(t, ctx, fs)

	_, errCh := fs.channels()
	errCh <- errors.New("socket gone")

	waitFor(t, "first redial attempt", func() bool {
		_, reconnects := fs.counts()
		return reconnects > 0
	})
	cancel()

	// attempts must stop once the context ends
	var settled int
	waitFor(t, "redial loop to exit", func() bool {
		_, n := fs.counts()
		if n == settled {
			return true
		}
		settled = n
		return false
	})
}
