package analytics

import (
	"fmt"
	"math"
)

// dfTable holds percentiles of the Dickey-Fuller tau distribution for
// the constant-only model (large-sample values). P-values for test
// statistics are linearly interpolated between these anchors and clamped
// to [0.001, 0.999] outside them.
var dfTable = []struct {
	stat float64
	p    float64
}{
	{-3.96, 0.001},
	{-3.43, 0.010},
	{-3.12, 0.025},
	{-2.86, 0.050},
	{-2.57, 0.100},
	{-1.57, 0.500},
	{-0.44, 0.900},
	{-0.07, 0.950},
	{0.60, 0.990},
}

// dfPValue interpolates the approximate p-value for a tau statistic.
func dfPValue(stat float64) float64 {
	if stat <= dfTable[0].stat {
		return dfTable[0].p
	}
	last := dfTable[len(dfTable)-1]
	if stat >= last.stat {
		return 0.999
	}
	for i := 1; i < len(dfTable); i++ {
		lo, hi := dfTable[i-1], dfTable[i]
		if stat <= hi.stat {
			frac := (stat - lo.stat) / (hi.stat - lo.stat)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return 0.999
}

// ADF runs an augmented Dickey-Fuller test (constant, no trend) on y:
//
//	dy_t = alpha + gamma*y_{t-1} + sum_i beta_i*dy_{t-i} + e_t
//
// and returns the t-statistic of gamma with its interpolated p-value.
// The lag order is floor(cbrt(n-1)), reduced if needed to keep enough
// residual degrees of freedom.
func ADF(y []float64, minObs int) (stat, pValue float64, lags int, err error) {
	n := len(y)
	if n < minObs {
		return 0, 0, 0, fmt.Errorf("%w: adf needs at least %d observations, have %d",
			ErrInsufficientData, minObs, n)
	}

	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = y[i] - y[i-1]
	}

	lags = int(math.Cbrt(float64(n - 1)))
	// keep at least 4 residual degrees of freedom
	for lags > 0 && len(diffs)-lags < lags+2+4 {
		lags--
	}

	nobs := len(diffs) - lags
	k := 2 + lags // constant, y_{t-1}, lagged diffs

	// design matrix rows: [1, y_{t-1}, dy_{t-1}, ..., dy_{t-lags}]
	X := make([][]float64, nobs)
	resp := make([]float64, nobs)
	for r := 0; r < nobs; r++ {
		t := r + lags // index into diffs
		row := make([]float64, k)
		row[0] = 1
		row[1] = y[t]
		for i := 1; i <= lags; i++ {
			row[1+i] = diffs[t-i]
		}
		X[r] = row
		resp[r] = diffs[t]
	}

	beta, xtxInv, err := olsFit(X, resp)
	if err != nil {
		return 0, 0, 0, err
	}

	rss := 0.0
	for r := 0; r < nobs; r++ {
		fit := 0.0
		for c := 0; c < k; c++ {
			fit += X[r][c] * beta[c]
		}
		resid := resp[r] - fit
		rss += resid * resid
	}
	dof := nobs - k
	if dof < 1 {
		return 0, 0, 0, fmt.Errorf("%w: adf regression has no residual degrees of freedom",
			ErrInsufficientData)
	}
	s2 := rss / float64(dof)
	seGamma := math.Sqrt(s2 * xtxInv[1][1])
	if seGamma == 0 || math.IsNaN(seGamma) {
		return 0, 0, 0, ErrZeroVariance
	}

	stat = beta[1] / seGamma
	return stat, dfPValue(stat), lags, nil
}

// olsFit solves the least squares problem and returns the coefficient
// vector together with (X'X)^-1 for standard errors.
func olsFit(X [][]float64, y []float64) (beta []float64, inv [][]float64, err error) {
	n := len(X)
	if n == 0 {
		return nil, nil, ErrInsufficientData
	}
	k := len(X[0])

	// normal equations
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := 0; i < k; i++ {
		xtx[i] = make([]float64, k)
	}
	for r := 0; r < n; r++ {
		for i := 0; i < k; i++ {
			xty[i] += X[r][i] * y[r]
			for j := i; j < k; j++ {
				xtx[i][j] += X[r][i] * X[r][j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
	}

	inv, err = invert(xtx)
	if err != nil {
		return nil, nil, err
	}

	beta = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			beta[i] += inv[i][j] * xty[j]
		}
	}
	return beta, inv, nil
}

// invert computes the inverse of a square matrix by Gauss-Jordan
// elimination with partial pivoting. ErrZeroVariance on a singular
// matrix (collinear or constant regressors).
func invert(m [][]float64) ([][]float64, error) {
	k := len(m)
	a := make([][]float64, k)
	inv := make([][]float64, k)
	for i := 0; i < k; i++ {
		a[i] = make([]float64, k)
		copy(a[i], m[i])
		inv[i] = make([]float64, k)
		inv[i][i] = 1
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, ErrZeroVariance
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		p := a[col][col]
		for c := 0; c < k; c++ {
			a[col][c] /= p
			inv[col][c] /= p
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for c := 0; c < k; c++ {
				a[r][c] -= f * a[col][c]
				inv[r][c] -= f * inv[col][c]
			}
		}
	}
	return inv, nil
}
