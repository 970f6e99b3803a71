package trend

import (
	"gonum.org/v1/gonum/stat"

	"airlens/domain/analysis"
	"airlens/domain/series"
	"airlens/internal/errors"
)

// Method selects which trend sub-methods run.
type Method string

const (
	MethodLinear        Method = "linear"
	MethodMovingAvg     Method = "moving_avg"
	MethodDecomposition Method = "decomposition"
	MethodComposite     Method = "composite"
)

const (
	// minPoints is the smallest series a trend can be estimated on.
	minPoints = 10
	// decompositionMin is the smallest series decomposition is attempted on.
	decompositionMin = 50
	// maxWindow caps the adaptive moving-average window at one day of
	// hourly readings.
	maxWindow = 24
)

// Estimator computes linear, moving-average, and decomposition trends on
// a cleaned series and blends them into a composite.
type Estimator struct{}

// NewEstimator creates a trend estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Compute estimates the trend of one pollutant. Input-contract failures
// (missing column, fewer than 10 points) come back as typed errors; a
// decomposition failure is recorded in the result instead.
func (e *Estimator) Compute(table *series.Table, pollutant string, method Method) (*analysis.TrendResult, error) {
	pts, ok := table.Slice(pollutant)
	if !ok {
		return nil, errors.ColumnNotFound(pollutant)
	}
	if len(pts) < minPoints {
		return nil, errors.InsufficientData("trend analysis", len(pts), minPoints)
	}

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}

	result := &analysis.TrendResult{
		Pollutant:  pollutant,
		PeriodDays: int(pts[len(pts)-1].Timestamp.Sub(pts[0].Timestamp).Hours() / 24),
		DataPoints: len(pts),
	}

	if method == MethodLinear || method == MethodComposite {
		result.Linear = fitLinear(pts, values)
	}

	if method == MethodMovingAvg || method == MethodComposite {
		result.MovingAverage = centeredMovingAverage(values)
	}

	if (method == MethodDecomposition || method == MethodComposite) && len(values) >= decompositionMin {
		period := len(values) / 2
		if period > maxWindow {
			period = maxWindow
		}
		dec, err := decompose(values, period)
		if err != nil {
			result.DecompositionError = err.Error()
		} else {
			result.Decomposition = dec
		}
	}

	if method == MethodComposite {
		result.Composite = blendComposite(result, len(values))
		result.Direction, result.ChangePercentage = summarizeDirection(result.Composite)
	}

	return result, nil
}

// fitLinear runs OLS of value against elapsed seconds since the first
// observation.
func fitLinear(pts []series.Point, values []float64) *analysis.LinearTrend {
	xs := make([]float64, len(pts))
	start := pts[0].Timestamp
	for i, p := range pts {
		xs[i] = p.Timestamp.Sub(start).Seconds()
	}

	intercept, slope := stat.LinearRegression(xs, values, nil, false)

	fitted := make([]float64, len(xs))
	for i, x := range xs {
		fitted[i] = intercept + slope*x
	}

	return &analysis.LinearTrend{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared(fitted, values),
		Values:    fitted,
	}
}

// rSquared is the coefficient of determination, defined as 0 for a
// constant series (zero total variance).
func rSquared(fitted, observed []float64) float64 {
	mean := stat.Mean(observed, nil)
	var ssRes, ssTot float64
	for i, y := range observed {
		ssRes += (y - fitted[i]) * (y - fitted[i])
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// centeredMovingAverage computes a centered rolling mean with adaptive
// window min(24, n/10), at least 1. Edge positions where the window
// cannot center are nil.
func centeredMovingAverage(values []float64) *analysis.MovingAverage {
	window := len(values) / 10
	if window > maxWindow {
		window = maxWindow
	}
	if window < 1 {
		window = 1
	}

	// Centered window: for even sizes the extra slot goes to the right,
	// matching the usual convention of shifting a trailing window back
	// by half its width.
	left := (window - 1) / 2
	right := window / 2

	out := make([]*float64, len(values))
	for i := range values {
		lo := i - left
		hi := i + right
		if lo < 0 || hi >= len(values) {
			continue
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		mean := sum / float64(window)
		out[i] = &mean
	}

	return &analysis.MovingAverage{WindowSize: window, Values: out}
}

// blendComposite averages the per-position outputs of every sub-method
// that produced a value there. Each position uses only its defined
// contributors; the denominator is tracked per position.
func blendComposite(result *analysis.TrendResult, n int) []float64 {
	composite := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		count := 0
		if result.Linear != nil {
			sum += result.Linear.Values[i]
			count++
		}
		if result.MovingAverage != nil {
			if v := result.MovingAverage.Values[i]; v != nil {
				sum += *v
				count++
			}
		}
		if result.Decomposition != nil {
			if v := result.Decomposition.Trend[i]; v != nil {
				sum += *v
				count++
			}
		}
		if count > 0 {
			composite[i] = sum / float64(count)
		}
	}
	return composite
}

// summarizeDirection compares the composite endpoints. Percent change is
// defined as 0 when the first value is 0.
func summarizeDirection(composite []float64) (analysis.Direction, float64) {
	if len(composite) == 0 {
		return "", 0
	}
	first := composite[0]
	last := composite[len(composite)-1]

	direction := analysis.DirectionStable
	if last > first {
		direction = analysis.DirectionRise
	} else if last < first {
		direction = analysis.DirectionFall
	}

	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}
	return direction, change
}
