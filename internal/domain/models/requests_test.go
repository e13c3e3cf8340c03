package models

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

// A rolling statistic needs at least two observations; zero means "use
// the configured default window".
func TestPairRequestWindowBounds(t *testing.T) {
	v := validator.New()

	for _, tc := range []struct {
		window int
		ok     bool
	}{
		{0, true}, // absent, engine default applies
		{1, false},
		{2, true},
		{60, true},
		{10000, true},
		{10001, false},
	} {
		req := PairRequest{SymbolA: "BTCUSDT", SymbolB: "ETHUSDT", Interval: "1m", Window: tc.window}
		err := v.Struct(req)
		if (err == nil) != tc.ok {
			t.Fatalf("window %d: err = %v, want ok=%v", tc.window, err, tc.ok)
		}
	}
}

func TestADFRequestWindowRejectsOne(t *testing.T) {
	v := validator.New()
	req := ADFRequest{SymbolA: "BTCUSDT", SymbolB: "ETHUSDT", Interval: "1m", Window: 1}
	if err := v.Struct(req); err == nil {
		t.Fatal("window=1 should fail validation")
	}
}
