package analytics

import (
	"errors"
	"math"
	"testing"
)

func TestADFInsufficientData(t *testing.T) {
	y := make([]float64, 10)
	_, _, _, err := ADF(y, 20)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestADFStationarySeries(t *testing.T) {
	// strongly mean-reverting AR(1): y_t = 0.2*y_{t-1} + e_t with a
	// deterministic pseudo-noise sequence
	y := make([]float64, 200)
	y[0] = 1
	for i := 1; i < len(y); i++ {
		noise := math.Sin(float64(i)*1.7) * 0.5
		y[i] = 0.2*y[i-1] + noise
	}

	stat, p, lags, err := ADF(y, 20)
	if err != nil {
		t.Fatalf("adf: %v", err)
	}
	if lags < 0 {
		t.Fatalf("lags = %d", lags)
	}
	if stat >= -2.86 {
		t.Fatalf("stat = %v, want well below the 5%% critical value", stat)
	}
	if p >= 0.05 {
		t.Fatalf("p = %v, want < 0.05 for a mean-reverting series", p)
	}
}

func TestADFTrendingSeriesNotStationary(t *testing.T) {
	// steady upward drift dominates the noise; the constant-only model
	// must not call this stationary
	y := make([]float64, 200)
	for i := range y {
		y[i] = 0.1*float64(i) + 0.5*math.Sin(float64(i)*1.7)
	}

	_, p, _, err := ADF(y, 20)
	if err != nil {
		t.Fatalf("adf: %v", err)
	}
	if p < 0.05 {
		t.Fatalf("p = %v, want >= 0.05 for a trending series", p)
	}
}

func TestADFFlatSeriesZeroVariance(t *testing.T) {
	y := make([]float64, 50)
	for i := range y {
		y[i] = 7
	}
	_, _, _, err := ADF(y, 20)
	if !errors.Is(err, ErrZeroVariance) {
		t.Fatalf("err = %v, want ErrZeroVariance", err)
	}
}

func TestDFPValueInterpolation(t *testing.T) {
	cases := []struct {
		stat float64
		lo   float64
		hi   float64
	}{
		{-5.0, 0.0, 0.002},   // far below the table
		{-3.43, 0.009, 0.011}, // 1% anchor
		{-2.86, 0.049, 0.051}, // 5% anchor
		{-2.57, 0.099, 0.101}, // 10% anchor
		{-2.7, 0.05, 0.10},    // between anchors
		{2.0, 0.99, 1.0},      // far above
	}
	for _, c := range cases {
		p := dfPValue(c.stat)
		if p < c.lo || p > c.hi {
			t.Fatalf("dfPValue(%v) = %v, want in [%v, %v]", c.stat, p, c.lo, c.hi)
		}
	}
}
