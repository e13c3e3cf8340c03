package models

import "time"

// Tick is a single observed trade for a symbol. Timestamp is in
// milliseconds since the Unix epoch, as delivered by the feed.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"`
	Price     float64 `json:"p"`
	Volume    float64 `json:"v"`
}

// Time converts the millisecond timestamp to time.Time (UTC).
func (t Tick) Time() time.Time {
	return time.UnixMilli(t.Timestamp).UTC()
}
