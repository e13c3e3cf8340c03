package usecase

import (
	"time"

	"PairWatch/internal/domain/models"
	"PairWatch/internal/market/resampler"
	"PairWatch/internal/market/tickbuffer"
)

// MarketQuery is the read side of the in-memory store for handlers and
// exporters.
type MarketQuery struct {
	buffer *tickbuffer.Buffer
	res    *resampler.Resampler
}

func NewMarketQuery(buffer *tickbuffer.Buffer, res *resampler.Resampler) *MarketQuery {
	return &MarketQuery{buffer: buffer, res: res}
}

// Series returns the trailing bars of (symbol, interval), open bar
// included and flagged. limit <= 0 returns the whole retained series.
func (q *MarketQuery) Series(symbol string, interval time.Duration, limit int) []models.Bar {
	bars := q.res.Series(symbol, interval)
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars
}

// LastTick returns the newest raw tick for a symbol.
func (q *MarketQuery) LastTick(symbol string) (models.Tick, bool) {
	return q.buffer.Latest(symbol)
}

// TickCount reports how many raw ticks are retained for a symbol.
func (q *MarketQuery) TickCount(symbol string) int {
	return q.buffer.Len(symbol)
}
