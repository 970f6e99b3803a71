package trend

import (
	"fmt"

	"airlens/domain/analysis"
)

// decompose performs additive seasonal decomposition: a centered
// moving-average trend over one full period, seasonal means of the
// detrended series per phase, and the leftover residual.
func decompose(values []float64, period int) (*analysis.Decomposition, error) {
	if period < 2 {
		return nil, fmt.Errorf("decomposition period must be at least 2, got %d", period)
	}
	if len(values) < 2*period {
		return nil, fmt.Errorf("series of %d points is too short for period %d", len(values), period)
	}

	trendLine := periodTrend(values, period)

	// Seasonal means per phase of the detrended series.
	sums := make([]float64, period)
	counts := make([]int, period)
	for i, t := range trendLine {
		if t == nil {
			continue
		}
		phase := i % period
		sums[phase] += values[i] - *t
		counts[phase]++
	}

	seasonalMeans := make([]float64, period)
	total := 0.0
	for k := 0; k < period; k++ {
		if counts[k] > 0 {
			seasonalMeans[k] = sums[k] / float64(counts[k])
		}
		total += seasonalMeans[k]
	}
	// Center so the seasonal component sums to zero over one period.
	offset := total / float64(period)
	for k := range seasonalMeans {
		seasonalMeans[k] -= offset
	}

	seasonal := make([]float64, len(values))
	residual := make([]*float64, len(values))
	for i := range values {
		seasonal[i] = seasonalMeans[i%period]
		if t := trendLine[i]; t != nil {
			r := values[i] - *t - seasonal[i]
			residual[i] = &r
		}
	}

	return &analysis.Decomposition{
		Period:   period,
		Trend:    trendLine,
		Seasonal: seasonal,
		Residual: residual,
	}, nil
}

// periodTrend is the centered moving average spanning exactly one period.
// An even period uses a window of period+1 with half weights at both
// ends so the average stays centered.
func periodTrend(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))

	if period%2 == 1 {
		half := period / 2
		for i := half; i < len(values)-half; i++ {
			sum := 0.0
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			mean := sum / float64(period)
			out[i] = &mean
		}
		return out
	}

	half := period / 2
	for i := half; i < len(values)-half; i++ {
		sum := 0.5*values[i-half] + 0.5*values[i+half]
		for j := i - half + 1; j <= i+half-1; j++ {
			sum += values[j]
		}
		mean := sum / float64(period)
		out[i] = &mean
	}
	return out
}
