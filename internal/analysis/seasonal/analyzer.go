package seasonal

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"airlens/domain/analysis"
	"airlens/domain/series"
	"airlens/internal/errors"
)

// Period selects the aggregation key.
type Period string

const (
	PeriodDaily   Period = "daily"   // hour of day, 0-23
	PeriodWeekly  Period = "weekly"  // day of week, Monday=0
	PeriodMonthly Period = "monthly" // month, 1-12
)

// minPoints is the canonical minimum window (one day of hourly data).
const minPoints = 24

// significanceAlpha is the ANOVA significance level.
const significanceAlpha = 0.05

// Analyzer extracts cyclical patterns from a cleaned series.
type Analyzer struct{}

// NewAnalyzer creates a seasonal pattern analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze aggregates one pollutant by the chosen period key. Daily
// analysis also identifies the peak hour and, when at least three hour
// groups exist, tests pattern significance with a one-way ANOVA.
func (a *Analyzer) Analyze(table *series.Table, pollutant string, period Period) (*analysis.SeasonalResult, error) {
	pts, ok := table.Slice(pollutant)
	if !ok {
		return nil, errors.ColumnNotFound(pollutant)
	}
	if len(pts) < minPoints {
		return nil, errors.InsufficientData("seasonal analysis", len(pts), minPoints)
	}

	result := &analysis.SeasonalResult{
		Pollutant: pollutant,
		Period:    string(period),
	}

	groups := groupBy(pts, period)
	buckets := summarizeGroups(groups)

	switch period {
	case PeriodWeekly:
		result.DailyPatterns = buckets
	case PeriodMonthly:
		result.MonthlyPatterns = buckets
	default:
		result.HourlyPatterns = buckets
		result.Peak = findPeak(buckets)
		result.Significance = oneWayANOVA(groups)
	}

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}
	result.Stats = describe(values)
	return result, nil
}

// groupBy buckets readings by the period key.
func groupBy(pts []series.Point, period Period) map[int][]float64 {
	groups := make(map[int][]float64)
	for _, p := range pts {
		var key int
		switch period {
		case PeriodWeekly:
			key = mondayWeekday(p.Timestamp.Weekday())
		case PeriodMonthly:
			key = int(p.Timestamp.Month())
		default:
			key = p.Timestamp.Hour()
		}
		groups[key] = append(groups[key], p.Value)
	}
	return groups
}

// mondayWeekday converts Go's Sunday-first weekday to the Monday=0
// convention used throughout the seasonal outputs.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func summarizeGroups(groups map[int][]float64) []analysis.SeasonalBucket {
	keys := make([]int, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	buckets := make([]analysis.SeasonalBucket, 0, len(keys))
	for _, key := range keys {
		values := groups[key]
		mean, _ := stats.Mean(values)
		std := 0.0
		if len(values) > 1 {
			std, _ = stats.StandardDeviationSample(values)
		}
		buckets = append(buckets, analysis.SeasonalBucket{
			Key:   key,
			Mean:  mean,
			Std:   std,
			Count: len(values),
		})
	}
	return buckets
}

func findPeak(buckets []analysis.SeasonalBucket) *analysis.PeakHour {
	if len(buckets) == 0 {
		return nil
	}
	peak := buckets[0]
	for _, b := range buckets[1:] {
		if b.Mean > peak.Mean {
			peak = b
		}
	}
	return &analysis.PeakHour{Hour: peak.Key, Concentration: peak.Mean}
}

// oneWayANOVA tests whether the hourly group means differ. The test is
// skipped (nil) with fewer than 3 groups or a degenerate zero
// within-group variance.
func oneWayANOVA(groups map[int][]float64) *analysis.Significance {
	if len(groups) < 3 {
		return nil
	}

	var grandSum float64
	var n int
	for _, values := range groups {
		for _, v := range values {
			grandSum += v
		}
		n += len(values)
	}
	grandMean := grandSum / float64(n)

	var ssBetween, ssWithin float64
	for _, values := range groups {
		mean, _ := stats.Mean(values)
		ssBetween += float64(len(values)) * (mean - grandMean) * (mean - grandMean)
		for _, v := range values {
			ssWithin += (v - mean) * (v - mean)
		}
	}

	df1 := float64(len(groups) - 1)
	df2 := float64(n - len(groups))
	if df2 <= 0 || ssWithin == 0 {
		return nil
	}

	f := (ssBetween / df1) / (ssWithin / df2)
	fDist := distuv.F{D1: df1, D2: df2}
	p := 1 - fDist.CDF(f)

	return &analysis.Significance{
		FStatistic:  f,
		PValue:      p,
		Significant: p < significanceAlpha,
	}
}

func describe(values []float64) analysis.Descriptive {
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	std, _ := stats.StandardDeviationSample(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	return analysis.Descriptive{
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    min,
		Max:    max,
		Count:  len(values),
	}
}
