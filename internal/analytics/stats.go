package analytics

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a computation needs more
// observations than are available. It is never fatal; callers keep any
// previously computed result.
var ErrInsufficientData = errors.New("insufficient data")

// ErrZeroVariance is returned when a computation would divide by a zero
// variance (flat input series).
var ErrZeroVariance = errors.New("zero variance")

// MeanStd returns the mean and the sample standard deviation (n-1
// denominator) of values.
func MeanStd(values []float64) (mean, std float64, err error) {
	n := len(values)
	if n < 2 {
		return 0, 0, ErrInsufficientData
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std = math.Sqrt(ss / float64(n-1))
	return mean, std, nil
}

// OLSSlope fits y = alpha + beta*x by ordinary least squares and returns
// beta. ErrZeroVariance when x is flat.
func OLSSlope(y, x []float64) (float64, error) {
	if len(y) != len(x) || len(y) < 2 {
		return 0, ErrInsufficientData
	}
	n := float64(len(x))

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX float64
	for i := range x {
		dx := x[i] - meanX
		cov += dx * (y[i] - meanY)
		varX += dx * dx
	}
	if varX == 0 {
		return 0, ErrZeroVariance
	}
	return cov / varX, nil
}

// Correlation returns the Pearson correlation coefficient of a and b.
// ErrZeroVariance when either side is flat.
func Correlation(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) < 2 {
		return 0, ErrInsufficientData
	}
	n := float64(len(a))

	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA := sumA / n
	meanB := sumB / n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, ErrZeroVariance
	}
	return cov / math.Sqrt(varA*varB), nil
}

// ZScore standardizes the last value of window against the window's mean
// and sample standard deviation. ErrZeroVariance when the window is flat.
func ZScore(window []float64) (float64, error) {
	mean, std, err := MeanStd(window)
	if err != nil {
		return 0, err
	}
	if std == 0 {
		return 0, ErrZeroVariance
	}
	return (window[len(window)-1] - mean) / std, nil
}
