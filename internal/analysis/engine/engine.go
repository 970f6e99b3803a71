package engine

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"airlens/domain/analysis"
	"airlens/domain/aqi"
	"airlens/domain/core"
	"airlens/domain/series"
	"airlens/internal/analysis/airquality"
	"airlens/internal/analysis/correlation"
	"airlens/internal/analysis/forecast"
	"airlens/internal/analysis/outlier"
	"airlens/internal/analysis/seasonal"
	"airlens/internal/analysis/trend"
	"airlens/internal/errors"
)

// minTargetReadings is how many non-missing readings a column needs to
// be auto-selected as the analysis target.
const minTargetReadings = 10

// Options tunes one engine pass. Zero values select the defaults.
type Options struct {
	Pollutant          string // empty = auto-select
	OutlierMethod      outlier.Method
	OutlierSensitivity outlier.Sensitivity
	TrendMethod        trend.Method
	ForecastHorizon    int
	ForecastMethod     forecast.Method
	SeasonalPeriod     seasonal.Period
}

func (o *Options) applyDefaults() {
	if o.OutlierMethod == "" {
		o.OutlierMethod = outlier.MethodMAD
	}
	if o.OutlierSensitivity == "" {
		o.OutlierSensitivity = outlier.SensitivityAuto
	}
	if o.TrendMethod == "" {
		o.TrendMethod = trend.MethodComposite
	}
	if o.ForecastHorizon == 0 {
		o.ForecastHorizon = 24
	}
	if o.ForecastMethod == "" {
		o.ForecastMethod = forecast.MethodHybrid
	}
	if o.SeasonalPeriod == "" {
		o.SeasonalPeriod = seasonal.PeriodDaily
	}
}

// Engine is the analysis pipeline: it cleans the target series once per
// consumer and fans the independent analyzers out concurrently. Every
// component produces its own success or error outcome; one failure never
// voids the others.
type Engine struct {
	detector    *outlier.Detector
	trend       *trend.Estimator
	forecaster  *forecast.Forecaster
	seasonal    *seasonal.Analyzer
	correlation *correlation.Analyzer
	aqi         *airquality.Calculator
}

// New creates an engine with the standard components and default AQI
// configuration.
func New() *Engine {
	return &Engine{
		detector:    outlier.NewDetector(),
		trend:       trend.NewEstimator(),
		forecaster:  forecast.NewForecaster(),
		seasonal:    seasonal.NewAnalyzer(),
		correlation: correlation.NewAnalyzer(),
		aqi:         airquality.NewCalculator(nil),
	}
}

// NewWithAQIConfig creates an engine with a custom breakpoint table.
func NewWithAQIConfig(config *aqi.Config) *Engine {
	e := New()
	e.aqi = airquality.NewCalculator(config)
	return e
}

// Run executes the full pipeline over a table. AQI is computed from the
// raw readings; everything else works on the outlier-cleaned series.
func (e *Engine) Run(ctx context.Context, table *series.Table, opts Options) (*analysis.AnalysisRun, error) {
	opts.applyDefaults()

	pollutant := opts.Pollutant
	if pollutant == "" {
		pollutant = SelectTargetPollutant(table)
	}
	if pollutant == "" {
		return nil, errors.NoData("any pollutant")
	}

	raw, ok := table.Slice(pollutant)
	if !ok {
		return nil, errors.ColumnNotFound(pollutant)
	}

	cleaned, report := e.detector.Detect(pollutant, raw, opts.OutlierMethod, outlier.Params{Sensitivity: opts.OutlierSensitivity})

	run := &analysis.AnalysisRun{
		ID:              core.RunID(core.NewID()),
		CreatedAt:       core.Now(),
		TargetPollutant: pollutant,
		Cleaning:        report,
	}

	// Each concurrent consumer gets its own copy of the cleaned series;
	// results land in distinct fields of the run.
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := e.trend.Compute(series.FromPoints(pollutant, cleaned), pollutant, opts.TrendMethod)
		if err != nil {
			run.TrendError = err.Error()
			return nil
		}
		run.Trend = result
		return nil
	})

	g.Go(func() error {
		result, err := e.forecaster.Forecast(series.FromPoints(pollutant, cleaned), pollutant, opts.ForecastHorizon, opts.ForecastMethod)
		if err != nil {
			run.ForecastError = err.Error()
			return nil
		}
		run.Forecast = result
		return nil
	})

	g.Go(func() error {
		result, err := e.seasonal.Analyze(series.FromPoints(pollutant, cleaned), pollutant, opts.SeasonalPeriod)
		if err != nil {
			run.SeasonalError = err.Error()
			return nil
		}
		run.Seasonal = result
		return nil
	})

	g.Go(func() error {
		result, err := e.correlation.Analyze(table, PollutantColumns(table))
		if err != nil {
			run.CorrelationError = err.Error()
			return nil
		}
		run.Correlations = result
		return nil
	})

	g.Go(func() error {
		run.AQI = e.aqi.Compute(table)
		return nil
	})

	_ = g.Wait()

	run.Yearly = yearlySummary(cleaned)
	run.BasicStats = describe(cleaned)
	return run, nil
}

// SelectTargetPollutant picks the first pollutant column, in canonical
// order, with enough non-missing readings to analyze.
func SelectTargetPollutant(table *series.Table) string {
	byCanonical := make(map[string]string)
	for _, column := range table.ColumnNames() {
		canonical := aqi.CanonicalPollutant(column)
		if canonical == "" {
			continue
		}
		if _, taken := byCanonical[canonical]; !taken {
			byCanonical[canonical] = column
		}
	}
	for _, canonical := range aqi.CanonicalOrder {
		column, ok := byCanonical[canonical]
		if !ok {
			continue
		}
		if len(table.Values(column)) >= minTargetReadings {
			return column
		}
	}
	return ""
}

// PollutantColumns lists the raw columns that alias onto known
// pollutants, in sorted column order.
func PollutantColumns(table *series.Table) []string {
	out := []string{}
	for _, column := range table.ColumnNames() {
		if aqi.CanonicalPollutant(column) != "" {
			out = append(out, column)
		}
	}
	return out
}

// yearlySummary condenses yearly averages into a long-run movement
// label. It needs at least two distinct years.
func yearlySummary(pts []series.Point) *analysis.YearlySummary {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	minYear, maxYear := 0, 0
	for _, p := range pts {
		year := p.Timestamp.Year()
		sums[year] += p.Value
		counts[year]++
		if minYear == 0 || year < minYear {
			minYear = year
		}
		if year > maxYear {
			maxYear = year
		}
	}
	if len(sums) < 2 {
		return nil
	}

	firstAvg := sums[minYear] / float64(counts[minYear])
	lastAvg := sums[maxYear] / float64(counts[maxYear])
	if firstAvg == 0 {
		return nil
	}

	change := (lastAvg - firstAvg) / firstAvg * 100
	direction := analysis.DirectionRise
	if change < 0 {
		direction = analysis.DirectionFall
	} else if change == 0 {
		direction = analysis.DirectionStable
	}

	return &analysis.YearlySummary{
		Direction:        direction,
		ChangePercentage: change,
		FirstYearAvg:     firstAvg,
		LastYearAvg:      lastAvg,
		YearsAnalyzed:    len(sums),
		Period:           fmt.Sprintf("%d-%d", minYear, maxYear),
	}
}

func describe(pts []series.Point) *analysis.Descriptive {
	if len(pts) == 0 {
		return nil
	}
	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	std, _ := stats.StandardDeviationSample(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	return &analysis.Descriptive{
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    min,
		Max:    max,
		Count:  len(values),
	}
}
