package models

// PairPoint is one observation of the pair analytics trail. Spread,
// ZScore and Correlation are nil when the value could not be computed
// at that point (insufficient history or zero variance); a missing
// value is never reported as zero.
type PairPoint struct {
	Timestamp   int64    `json:"timestamp"`
	Spread      *float64 `json:"spread"`
	ZScore      *float64 `json:"zscore"`
	Correlation *float64 `json:"correlation"`
}

// ADFResult is the outcome of an augmented Dickey-Fuller stationarity
// test over a pair's spread trail.
type ADFResult struct {
	Statistic    float64 `json:"statistic"`
	PValue       float64 `json:"p_value"`
	IsStationary bool    `json:"is_stationary"`
	Lags         int     `json:"lags"`
	Observations int     `json:"observations"`
	ComputedAt   int64   `json:"computed_at"`
}

// PairSnapshot is the full analytics state of a symbol pair at one
// interval, as served to the presentation layer. HedgeRatio is nil
// when fewer than Window sealed bars exist or the independent leg has
// zero variance. ADF holds the most recent manually triggered test
// result, if any.
type PairSnapshot struct {
	SymbolA    string      `json:"symbol_a"`
	SymbolB    string      `json:"symbol_b"`
	Interval   string      `json:"interval"`
	Window     int         `json:"window"`
	HedgeRatio *float64    `json:"hedge_ratio"`
	Points     []PairPoint `json:"points"`
	ADF        *ADFResult  `json:"adf"`
}
