package models

import "time"

// AlertRule fires when the absolute latest z-score of the pair
// exceeds Threshold. Rules are evaluated on the pull path, whenever
// pair state is refreshed.
type AlertRule struct {
	Name      string    `json:"name"`
	SymbolA   string    `json:"symbol_a"`
	SymbolB   string    `json:"symbol_b"`
	Threshold float64   `json:"threshold"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertEvent records one firing of a rule.
type AlertEvent struct {
	Rule        string    `json:"rule"`
	SymbolA     string    `json:"symbol_a"`
	SymbolB     string    `json:"symbol_b"`
	ZScore      float64   `json:"zscore"`
	Threshold   float64   `json:"threshold"`
	TriggeredAt time.Time `json:"triggered_at"`
}
