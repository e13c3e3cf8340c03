package analytics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	"PairWatch/internal/market/resampler"
	xlogger "PairWatch/pkg/logger"
)

// Option configures Engine.
type Option func(*Engine)

// WithWindow sets the default rolling window (bars) used when a request
// does not specify one.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithSignificance sets the ADF significance level for the stationarity
// verdict.
func WithSignificance(a float64) Option {
	return func(e *Engine) {
		if a > 0 && a < 1 {
			e.significance = a
		}
	}
}

// WithMinObservations sets the minimum spread observations the ADF test
// requires.
func WithMinObservations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minObs = n
		}
	}
}

// WithMaxPoints caps the retained analytics trail per pair.
func WithMaxPoints(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPoints = n
		}
	}
}

// Engine computes pair analytics on demand over sealed bar snapshots.
// Nothing recomputes in the background: every refresh happens on the
// caller's goroutine when Snapshot or RunADF is invoked.
//
// Per pair the engine keeps an incremental trail of spread observations.
// Each new sealed bar extends the trail using the hedge ratio current at
// that moment; earlier points are never rewritten when the ratio drifts,
// so the trail reflects what the analytics actually reported over time.
type Engine struct {
	res     *resampler.Resampler
	logger  *xlogger.Logger
	metrics drepo.Metrics

	window       int
	significance float64
	minObs       int
	maxPoints    int

	mu    sync.Mutex
	pairs map[pairKey]*pairState
}

type pairKey struct {
	a, b     string
	interval time.Duration
}

type pairState struct {
	window    int
	lastStart int64
	ratio     *float64
	points    []models.PairPoint
	adf       *models.ADFResult
}

// NewEngine creates an analytics engine over the resampler's series.
// Defaults: window 60, significance 0.05, 20 minimum ADF observations,
// 5000 retained trail points per pair.
func NewEngine(res *resampler.Resampler, logger *xlogger.Logger, metrics drepo.Metrics, opts ...Option) *Engine {
	e := &Engine{
		res:          res,
		logger:       logger,
		metrics:      metrics,
		window:       60,
		significance: 0.05,
		minObs:       20,
		maxPoints:    5000,
		pairs:        make(map[pairKey]*pairState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot refreshes and returns the analytics state of a pair at the
// given interval. window <= 0 selects the engine default. The returned
// snapshot is a copy.
func (e *Engine) Snapshot(symbolA, symbolB string, interval time.Duration, window int) *models.PairSnapshot {
	start := time.Now()
	if window <= 0 {
		window = e.window
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state(symbolA, symbolB, interval, window)
	e.advance(st, symbolA, symbolB, interval)

	snap := &models.PairSnapshot{
		SymbolA:  symbolA,
		SymbolB:  symbolB,
		Interval: drepo.FormatInterval(interval),
		Window:   st.window,
		Points:   make([]models.PairPoint, len(st.points)),
	}
	copy(snap.Points, st.points)
	if st.ratio != nil {
		r := *st.ratio
		snap.HedgeRatio = &r
	}
	if st.adf != nil {
		adf := *st.adf
		snap.ADF = &adf
	}

	e.metrics.RecordLatency("pair_snapshot", time.Since(start).Seconds())
	return snap
}

// RunADF runs the stationarity test over the pair's current spread
// trail. On ErrInsufficientData the previously stored result is kept
// and still served by later snapshots.
func (e *Engine) RunADF(symbolA, symbolB string, interval time.Duration, window int) (*models.ADFResult, error) {
	start := time.Now()
	if window <= 0 {
		window = e.window
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state(symbolA, symbolB, interval, window)
	e.advance(st, symbolA, symbolB, interval)

	spreads := make([]float64, 0, len(st.points))
	for _, p := range st.points {
		if p.Spread != nil {
			spreads = append(spreads, *p.Spread)
		}
	}
	if len(spreads) < e.minObs {
		e.metrics.RecordError("adf_insufficient_data")
		return nil, fmt.Errorf("%w: adf needs %d spread observations, have %d",
			ErrInsufficientData, e.minObs, len(spreads))
	}

	stat, pValue, lags, err := ADF(spreads, e.minObs)
	if err != nil {
		e.metrics.RecordError("adf")
		return nil, err
	}

	result := &models.ADFResult{
		Statistic:    stat,
		PValue:       pValue,
		IsStationary: pValue < e.significance,
		Lags:         lags,
		Observations: len(spreads),
		ComputedAt:   time.Now().UnixMilli(),
	}
	st.adf = result

	e.logger.Info("adf computed",
		xlogger.String("pair", symbolA+"/"+symbolB),
		xlogger.Any("statistic", stat),
		xlogger.Any("p_value", pValue),
		xlogger.Bool("stationary", result.IsStationary),
	)
	e.metrics.RecordLatency("adf", time.Since(start).Seconds())

	out := *result
	return &out, nil
}

// state returns the pair's trail state, resetting it when the requested
// window differs (a different window implies a different trail). The
// last ADF result survives a reset; it is replaced only by RunADF.
func (e *Engine) state(symbolA, symbolB string, interval time.Duration, window int) *pairState {
	key := pairKey{a: symbolA, b: symbolB, interval: interval}
	st, ok := e.pairs[key]
	if !ok {
		st = &pairState{window: window, lastStart: -1}
		e.pairs[key] = st
		return st
	}
	if st.window != window {
		st.window = window
		st.lastStart = -1
		st.ratio = nil
		st.points = nil
	}
	return st
}

// advance folds sealed bars newer than the trail's last point into the
// pair state. Caller holds e.mu.
func (e *Engine) advance(st *pairState, symbolA, symbolB string, interval time.Duration) {
	closesA, closesB, starts := alignSealed(
		e.res.Sealed(symbolA, interval),
		e.res.Sealed(symbolB, interval),
		interval,
	)

	for i, barStart := range starts {
		if barStart <= st.lastStart {
			continue
		}

		var ratio *float64
		if i+1 >= st.window {
			slope, err := OLSSlope(closesA[i+1-st.window:i+1], closesB[i+1-st.window:i+1])
			if err == nil {
				ratio = &slope
			} else if errors.Is(err, ErrZeroVariance) {
				e.metrics.RecordError("zero_variance")
			}
		}
		st.ratio = ratio

		point := models.PairPoint{Timestamp: barStart}
		if ratio != nil {
			spread := closesA[i] - *ratio*closesB[i]
			point.Spread = &spread
		}

		if z, ok := rollingZScore(st.points, point.Spread, st.window); ok {
			point.ZScore = &z
		}

		if i+1 >= st.window {
			if corr, err := Correlation(closesA[i+1-st.window:i+1], closesB[i+1-st.window:i+1]); err == nil {
				point.Correlation = &corr
			}
		}

		st.points = append(st.points, point)
		st.lastStart = barStart
	}

	if e.maxPoints > 0 && len(st.points) > e.maxPoints {
		st.points = append(st.points[:0], st.points[len(st.points)-e.maxPoints:]...)
	}
}

// rollingZScore standardizes the newest spread against the trailing
// window of spread observations (the new value included). Any missing
// spread inside the window makes the z-score missing as well.
func rollingZScore(points []models.PairPoint, spread *float64, window int) (float64, bool) {
	if spread == nil || window < 2 || len(points) < window-1 {
		return 0, false
	}
	values := make([]float64, 0, window)
	for _, p := range points[len(points)-(window-1):] {
		if p.Spread == nil {
			return 0, false
		}
		values = append(values, *p.Spread)
	}
	values = append(values, *spread)

	z, err := ZScore(values)
	if err != nil {
		return 0, false
	}
	return z, true
}

// alignSealed intersects two contiguous sealed series on their bar
// starts and returns the paired closes.
func alignSealed(a, b []models.Bar, interval time.Duration) (closesA, closesB []float64, starts []int64) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil, nil
	}
	w := interval.Milliseconds()

	lo := a[0].Start
	if b[0].Start > lo {
		lo = b[0].Start
	}
	hi := a[len(a)-1].Start
	if b[len(b)-1].Start < hi {
		hi = b[len(b)-1].Start
	}
	if lo > hi {
		return nil, nil, nil
	}

	n := int((hi-lo)/w) + 1
	closesA = make([]float64, 0, n)
	closesB = make([]float64, 0, n)
	starts = make([]int64, 0, n)

	offA := int((lo - a[0].Start) / w)
	offB := int((lo - b[0].Start) / w)
	for i := 0; i < n; i++ {
		closesA = append(closesA, a[offA+i].Close)
		closesB = append(closesB, b[offB+i].Close)
		starts = append(starts, lo+int64(i)*w)
	}
	return closesA, closesB, starts
}
