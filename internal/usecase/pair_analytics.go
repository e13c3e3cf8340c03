package usecase

import (
	"context"
	"errors"
	"time"

	"PairWatch/internal/alert"
	"PairWatch/internal/analytics"
	"PairWatch/internal/domain/models"
	drepo "PairWatch/internal/domain/repository"
	"PairWatch/pkg/cache"
	xlogger "PairWatch/pkg/logger"
)

// PairAnalytics serves pair state to the presentation layer. Every call
// refreshes the trail from the resampler (pull-based recompute); the
// optional cache short-circuits bursts of identical polls and is off by
// default so each poll observes fresh state.
type PairAnalytics struct {
	engine   *analytics.Engine
	alerts   *alert.Registry
	cache    cache.Service // nil disables caching
	cacheTTL time.Duration
	logger   *xlogger.Logger
	metrics  drepo.Metrics
}

func NewPairAnalytics(
	engine *analytics.Engine,
	alerts *alert.Registry,
	cacheSvc cache.Service,
	cacheTTL time.Duration,
	logger *xlogger.Logger,
	metrics drepo.Metrics,
) *PairAnalytics {
	return &PairAnalytics{
		engine:   engine,
		alerts:   alerts,
		cache:    cacheSvc,
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// Pair refreshes and returns the analytics snapshot for a symbol pair,
// evaluating alert rules against the latest z-score on the way.
func (u *PairAnalytics) Pair(ctx context.Context, symbolA, symbolB string, interval time.Duration, window int) (*models.PairSnapshot, error) {
	key := cache.GenerateKeyWithParams("pair", symbolA, symbolB, drepo.FormatInterval(interval), window)
	if u.cache != nil {
		var cached models.PairSnapshot
		if err := u.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			u.metrics.RecordError("cache_get")
		}
	}

	snap := u.engine.Snapshot(symbolA, symbolB, interval, window)

	if z, ok := latestZScore(snap); ok {
		u.alerts.Evaluate(symbolA, symbolB, z)
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, key, snap, u.cacheTTL); err != nil {
			u.metrics.RecordError("cache_set")
		}
	}
	return snap, nil
}

// RunADF triggers the stationarity test for a pair. The cached pair
// response is invalidated so the next poll carries the fresh result.
func (u *PairAnalytics) RunADF(ctx context.Context, symbolA, symbolB string, interval time.Duration, window int) (*models.ADFResult, error) {
	res, err := u.engine.RunADF(symbolA, symbolB, interval, window)
	if err != nil {
		return nil, err
	}
	if u.cache != nil {
		pattern := cache.BuildPattern(cache.GenerateKeyWithParams("pair", symbolA, symbolB))
		if derr := u.cache.DeleteByPattern(ctx, pattern); derr != nil {
			u.metrics.RecordError("cache_invalidate")
		}
	}
	return res, nil
}

// Alerts exposes the rule registry to the handler layer.
func (u *PairAnalytics) Alerts() *alert.Registry { return u.alerts }

// latestZScore looks at the newest point only; an older z-score must
// not retrigger alerts.
func latestZScore(snap *models.PairSnapshot) (float64, bool) {
	if n := len(snap.Points); n > 0 && snap.Points[n-1].ZScore != nil {
		return *snap.Points[n-1].ZScore, true
	}
	return 0, false
}
