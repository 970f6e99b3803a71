package outlier

import (
	"math"

	"github.com/montanaflynn/stats"

	"airlens/domain/analysis"
	"airlens/domain/series"
)

// Method selects the statistical outlier test.
type Method string

const (
	MethodMAD    Method = "mad"
	MethodIQR    Method = "iqr"
	MethodZScore Method = "zscore"
)

// Sensitivity tunes the MAD threshold multiplier.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
	SensitivityAuto   Sensitivity = "auto"
)

// sensitivityThresholds maps named sensitivities to MAD multipliers.
var sensitivityThresholds = map[Sensitivity]float64{
	SensitivityLow:    3.5,
	SensitivityMedium: 3.0,
	SensitivityHigh:   2.5,
}

// DefaultZThreshold is the z-score cutoff when none is configured.
const DefaultZThreshold = 3.0

// Params carries per-method tuning.
type Params struct {
	Sensitivity Sensitivity // MAD only
	ZThreshold  float64     // z-score only; 0 means DefaultZThreshold
}

// Detector flags anomalous readings in a pollutant series. It is a pure
// function over its inputs: the caller's slice is never modified.
type Detector struct{}

// NewDetector creates an outlier detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect removes anomalies from an already missing-value-free series and
// reports what was removed. An empty input yields the input unchanged
// with the no-data condition set; it is not an error.
func (d *Detector) Detect(pollutant string, pts []series.Point, method Method, params Params) ([]series.Point, *analysis.AnomalyReport) {
	report := &analysis.AnomalyReport{
		Pollutant: pollutant,
		Method:    string(method),
	}

	if len(pts) == 0 {
		report.NoData = true
		return pts, report
	}

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}

	var lower, upper float64
	switch method {
	case MethodIQR:
		lower, upper = iqrBounds(values)
	case MethodZScore:
		threshold := params.ZThreshold
		if threshold == 0 {
			threshold = DefaultZThreshold
		}
		lower, upper = zScoreBounds(values, threshold)
		report.ThresholdUsed = threshold
	default: // MAD
		threshold := resolveMADThreshold(values, params.Sensitivity)
		var median float64
		lower, upper, median = madBounds(values, threshold)
		report.ThresholdUsed = threshold
		report.Median = median
	}

	cleaned := make([]series.Point, 0, len(pts))
	removed := 0
	for _, p := range pts {
		if p.Value < lower || p.Value > upper {
			removed++
			continue
		}
		cleaned = append(cleaned, p)
	}

	report.AnomaliesDetected = removed
	report.AnomalyPercentage = float64(removed) / float64(len(pts)) * 100
	report.Bounds = &analysis.Bounds{Lower: lower, Upper: upper}
	return cleaned, report
}

// resolveMADThreshold picks the MAD multiplier for a sensitivity setting.
// Auto mode derives it from the coefficient of variation: noisier series
// get a looser band.
func resolveMADThreshold(values []float64, sensitivity Sensitivity) float64 {
	if t, ok := sensitivityThresholds[sensitivity]; ok {
		return t
	}
	mean, _ := stats.Mean(values)
	std, _ := stats.StandardDeviationSample(values)
	if mean == 0 {
		return sensitivityThresholds[SensitivityMedium]
	}
	cv := std / mean
	switch {
	case cv > 1.0:
		return 3.5
	case cv > 0.5:
		return 2.8
	default:
		return 2.5
	}
}

// madBounds computes median ± threshold·MAD. A zero MAD (constant or
// near-constant series) falls back to the normal-equivalent scale
// std/1.4826 so the band never collapses to zero width.
func madBounds(values []float64, threshold float64) (lower, upper, median float64) {
	median, _ = stats.Median(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	mad, _ := stats.Median(deviations)

	if mad == 0 {
		std, _ := stats.StandardDeviationSample(values)
		mad = std / 1.4826
	}

	return median - threshold*mad, median + threshold*mad, median
}

// iqrBounds computes the standard Tukey fences Q1-1.5·IQR, Q3+1.5·IQR.
func iqrBounds(values []float64) (float64, float64) {
	q1, _ := stats.Percentile(values, 25)
	q3, _ := stats.Percentile(values, 75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

// zScoreBounds translates the |v-mean|/std > threshold rule into a band.
func zScoreBounds(values []float64, threshold float64) (float64, float64) {
	mean, _ := stats.Mean(values)
	std, _ := stats.StandardDeviationSample(values)
	return mean - threshold*std, mean + threshold*std
}
