package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"airlens/domain/series"
)

// ARIMAModel is a fixed-order ARIMA(1,1,1): one differencing pass and an
// ARMA(1,1) on the differenced series, estimated by Hannan-Rissanen
// conditional least squares (a long autoregression supplies residual
// proxies, then one OLS pass yields the AR and MA coefficients).
type ARIMAModel struct {
	p, d, q int
}

// NewARIMAModel creates the standard ARIMA(1,1,1) sub-model.
func NewARIMAModel() *ARIMAModel {
	return &ARIMAModel{p: 1, d: 1, q: 1}
}

// Name implements Model.
func (m *ARIMAModel) Name() string { return "arima" }

// minDifferenced is the shortest differenced series the estimator
// accepts; below this the long autoregression is meaningless.
const minDifferenced = 20

// Forecast implements Model.
func (m *ARIMAModel) Forecast(pts []series.Point, horizon int) ([]float64, error) {
	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}

	diffed := difference(values)
	if len(diffed) < minDifferenced {
		return nil, fmt.Errorf("differenced series of %d points is too short to fit", len(diffed))
	}

	residuals, err := longARResiduals(diffed)
	if err != nil {
		return nil, err
	}

	c, phi, theta, err := fitARMA11(diffed, residuals)
	if err != nil {
		return nil, err
	}

	// Forecast the differenced series: the first step uses the last
	// observed value and residual, later steps recurse on the forecast
	// with future shocks at their zero expectation.
	lastDiff := diffed[len(diffed)-1]
	lastResidual := residuals[len(residuals)-1]

	forecast := make([]float64, horizon)
	level := values[len(values)-1]
	step := c + phi*lastDiff + theta*lastResidual
	for k := 0; k < horizon; k++ {
		level += step
		forecast[k] = level
		step = c + phi*step
	}

	for _, v := range forecast {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("forecast diverged (phi=%.4f theta=%.4f)", phi, theta)
		}
	}
	return forecast, nil
}

// difference applies one pass of first differencing.
func difference(values []float64) []float64 {
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// longARResiduals fits a long AR by OLS and returns its residual series,
// aligned with the input (the first lag positions are zero-filled so
// indexes match the differenced series).
func longARResiduals(diffed []float64) ([]float64, error) {
	order := len(diffed) / 4
	if order > 10 {
		order = 10
	}
	if order < 1 {
		order = 1
	}

	rows := len(diffed) - order
	design := mat.NewDense(rows, order+1, nil)
	target := mat.NewVecDense(rows, nil)
	for t := order; t < len(diffed); t++ {
		row := t - order
		design.Set(row, 0, 1)
		for j := 1; j <= order; j++ {
			design.Set(row, j, diffed[t-j])
		}
		target.SetVec(row, diffed[t])
	}

	coef, err := solveLeastSquares(design, target)
	if err != nil {
		return nil, fmt.Errorf("long autoregression failed: %w", err)
	}

	residuals := make([]float64, len(diffed))
	for t := order; t < len(diffed); t++ {
		fitted := coef.AtVec(0)
		for j := 1; j <= order; j++ {
			fitted += coef.AtVec(j) * diffed[t-j]
		}
		residuals[t] = diffed[t] - fitted
	}
	return residuals, nil
}

// fitARMA11 regresses the differenced series on its own lag and the
// lagged residual proxy, yielding constant, AR, and MA coefficients.
func fitARMA11(diffed, residuals []float64) (c, phi, theta float64, err error) {
	// Skip the zero-filled residual prefix.
	start := 0
	for start < len(residuals) && residuals[start] == 0 {
		start++
	}
	start++ // need residual at t-1

	rows := len(diffed) - start
	if rows < 5 {
		return 0, 0, 0, fmt.Errorf("only %d usable observations after residual warmup", rows)
	}

	design := mat.NewDense(rows, 3, nil)
	target := mat.NewVecDense(rows, nil)
	for t := start; t < len(diffed); t++ {
		row := t - start
		design.Set(row, 0, 1)
		design.Set(row, 1, diffed[t-1])
		design.Set(row, 2, residuals[t-1])
		target.SetVec(row, diffed[t])
	}

	coef, err := solveLeastSquares(design, target)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ARMA estimation failed: %w", err)
	}

	c, phi, theta = coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)
	if math.IsNaN(c) || math.IsNaN(phi) || math.IsNaN(theta) {
		return 0, 0, 0, fmt.Errorf("ARMA estimation produced non-finite coefficients")
	}
	return c, phi, theta, nil
}

// solveLeastSquares solves min ||Ax - b|| via QR decomposition. A
// rank-deficient design (e.g. a constant differenced series) fails here
// and is reported as a fit failure.
func solveLeastSquares(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	var qr mat.QR
	qr.Factorize(a)

	_, cols := a.Dims()
	coef := mat.NewVecDense(cols, nil)
	if err := qr.SolveVecTo(coef, false, b); err != nil {
		return nil, err
	}
	return coef, nil
}
