package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type SeriesRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"1m" validate:"oneof=1s 1m 5m"`
	Limit    int    `query:"limit" json:"limit" default:"300" validate:"gte=0,lte=10000"`
}

type PairRequest struct {
	SymbolA  string `query:"symbol_a" json:"symbol_a" validate:"required"`
	SymbolB  string `query:"symbol_b" json:"symbol_b" validate:"required,nefield=SymbolA"`
	Interval string `query:"interval" json:"interval" default:"1m" validate:"oneof=1s 1m 5m"`
	Window   int    `query:"window" json:"window" default:"0" validate:"eq=0|gte=2,lte=10000"`
}

type ADFRequest struct {
	SymbolA  string `query:"symbol_a" json:"symbol_a" validate:"required"`
	SymbolB  string `query:"symbol_b" json:"symbol_b" validate:"required,nefield=SymbolA"`
	Interval string `query:"interval" json:"interval" default:"1m" validate:"oneof=1s 1m 5m"`
	Window   int    `query:"window" json:"window" default:"0" validate:"eq=0|gte=2,lte=10000"`
}

type CreateAlertRequest struct {
	Name      string  `json:"name" validate:"required,max=64"`
	SymbolA   string  `json:"symbol_a" validate:"required"`
	SymbolB   string  `json:"symbol_b" validate:"required,nefield=SymbolA"`
	Threshold float64 `json:"threshold" default:"2" validate:"gt=0"`
}

type AlertHistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=0,lte=1000"`
}

type SetAlertActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
