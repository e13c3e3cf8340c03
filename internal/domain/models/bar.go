package models

import "time"

// Bar is one OHLCV bucket of a resampled series. Start is the
// floor-aligned bucket start in milliseconds since the Unix epoch.
//
// Synthetic bars are gap fillers: no tick arrived during the interval,
// so OHLC carry the previous close forward and volume is zero.
// IsOpen is set on snapshot reads for the trailing, still-mutable bar.
type Bar struct {
	Start     int64   `json:"start"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Synthetic bool    `json:"synthetic"`
	IsOpen    bool    `json:"is_open"`
}

// StartTime converts the bucket start to time.Time (UTC).
func (b Bar) StartTime() time.Time {
	return time.UnixMilli(b.Start).UTC()
}
