package engine

import (
	"context"
	"sort"

	"github.com/montanaflynn/stats"

	"airlens/domain/analysis"
	"airlens/domain/series"
	"airlens/internal/analysis/trend"
	"airlens/internal/errors"
)

func normalizeTrendMethod(m string) trend.Method {
	if m == "" {
		return trend.MethodComposite
	}
	return trend.Method(m)
}

// regionColumnCandidates are the label columns treated as region keys,
// in preference order.
var regionColumnCandidates = []string{"state", "city", "location", "region", "area"}

// RegionalComparison is one metric computed per region.
type RegionalComparison struct {
	Pollutant string             `json:"pollutant"`
	Metric    string             `json:"metric"`
	ByRegion  map[string]float64 `json:"by_region"`
	Ranked    []string           `json:"ranked"`
}

// RegionalTrends holds per-region trend outcomes; regions that failed
// carry their error instead of a result.
type RegionalTrends struct {
	Pollutant string                           `json:"pollutant"`
	ByRegion  map[string]*analysis.TrendResult `json:"by_region"`
	Errors    map[string]string                `json:"errors,omitempty"`
}

// RegionalForecasts holds per-region forecast outcomes.
type RegionalForecasts struct {
	Pollutant string                              `json:"pollutant"`
	ByRegion  map[string]*analysis.ForecastResult `json:"by_region"`
	Errors    map[string]string                   `json:"errors,omitempty"`
}

// RegionColumn finds the label column that identifies regions, trying
// the conventional names in order. Empty when the table carries none.
func RegionColumn(table *series.Table) string {
	for _, candidate := range regionColumnCandidates {
		if _, ok := table.Labels[candidate]; ok {
			return candidate
		}
	}
	return ""
}

// Regions lists the distinct regions under the discovered region column.
func Regions(table *series.Table) []string {
	column := RegionColumn(table)
	if column == "" {
		return nil
	}
	return table.LabelValues(column)
}

// CompareRegions computes one summary metric of a pollutant per region
// and ranks regions from highest to lowest. Supported metrics are mean,
// median, max, min, and std; regions with no readings are skipped.
func CompareRegions(table *series.Table, regions []string, pollutant, metric string) (*RegionalComparison, error) {
	column := RegionColumn(table)
	if column == "" {
		return nil, errors.InvalidInput("no region column in data")
	}
	if !table.HasColumn(pollutant) {
		return nil, errors.ColumnNotFound(pollutant)
	}
	if len(regions) == 0 {
		regions = table.LabelValues(column)
	}

	out := &RegionalComparison{
		Pollutant: pollutant,
		Metric:    metric,
		ByRegion:  make(map[string]float64, len(regions)),
	}
	for _, region := range regions {
		values := table.FilterLabel(column, region).Values(pollutant)
		if len(values) == 0 {
			continue
		}
		var v float64
		switch metric {
		case "median":
			v, _ = stats.Median(values)
		case "max":
			v, _ = stats.Max(values)
		case "min":
			v, _ = stats.Min(values)
		case "std":
			if len(values) < 2 {
				continue
			}
			v, _ = stats.StandardDeviationSample(values)
		case "mean", "":
			v, _ = stats.Mean(values)
		default:
			return nil, errors.InvalidInput("unknown comparison metric " + metric)
		}
		out.ByRegion[region] = v
	}
	if len(out.ByRegion) == 0 {
		return nil, errors.NoData(pollutant)
	}

	out.Ranked = make([]string, 0, len(out.ByRegion))
	for region := range out.ByRegion {
		out.Ranked = append(out.Ranked, region)
	}
	sort.SliceStable(out.Ranked, func(i, j int) bool {
		a, b := out.ByRegion[out.Ranked[i]], out.ByRegion[out.Ranked[j]]
		if a != b {
			return a > b
		}
		return out.Ranked[i] < out.Ranked[j]
	})
	return out, nil
}

// TrendByRegion runs the trend estimator over each region's sub-series.
// A region failing never stops the others.
func (e *Engine) TrendByRegion(table *series.Table, regions []string, pollutant string, method string) (*RegionalTrends, error) {
	column := RegionColumn(table)
	if column == "" {
		return nil, errors.InvalidInput("no region column in data")
	}
	if len(regions) == 0 {
		regions = table.LabelValues(column)
	}

	out := &RegionalTrends{
		Pollutant: pollutant,
		ByRegion:  make(map[string]*analysis.TrendResult, len(regions)),
		Errors:    make(map[string]string),
	}
	for _, region := range regions {
		sub := table.FilterLabel(column, region)
		result, err := e.trend.Compute(sub, pollutant, normalizeTrendMethod(method))
		if err != nil {
			out.Errors[region] = err.Error()
			continue
		}
		out.ByRegion[region] = result
	}
	return out, nil
}

// ForecastByRegion runs the forecaster over each region's sub-series,
// cleaning each with the default outlier settings first.
func (e *Engine) ForecastByRegion(ctx context.Context, table *series.Table, regions []string, pollutant string, horizon int) (*RegionalForecasts, error) {
	column := RegionColumn(table)
	if column == "" {
		return nil, errors.InvalidInput("no region column in data")
	}
	if horizon <= 0 {
		horizon = 24
	}
	if len(regions) == 0 {
		regions = table.LabelValues(column)
	}

	out := &RegionalForecasts{
		Pollutant: pollutant,
		ByRegion:  make(map[string]*analysis.ForecastResult, len(regions)),
		Errors:    make(map[string]string),
	}
	for _, region := range regions {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		sub := table.FilterLabel(column, region)
		result, err := e.forecaster.Forecast(sub, pollutant, horizon, "")
		if err != nil {
			out.Errors[region] = err.Error()
			continue
		}
		out.ByRegion[region] = result
	}
	return out, nil
}
