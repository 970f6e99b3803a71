package engine

import (
	"context"
	"testing"
	"time"

	"airlens/domain/series"
	"airlens/internal/errors"
	"airlens/internal/testkit"
)

// regionalTable builds two cities with distinct constant levels so the
// comparison metrics are exact.
func regionalTable(rowsPerCity int) *series.Table {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := rowsPerCity * 2
	ts := make([]time.Time, rows)
	values := make([]float64, rows)
	present := make([]bool, rows)
	labels := make([]string, rows)
	for i := 0; i < rows; i++ {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		present[i] = true
		if i%2 == 0 {
			labels[i] = "agra"
			values[i] = 30
		} else {
			labels[i] = "delhi"
			values[i] = 80
		}
	}

	table := series.New(ts)
	_ = table.AddColumn("pm2_5", values, present)
	_ = table.AddLabelColumn("city", labels)
	return table
}

func TestRegionColumn_PreferenceOrder(t *testing.T) {
	table := regionalTable(10)
	if got := RegionColumn(table); got != "city" {
		t.Fatalf("expected city, got %q", got)
	}

	// A state column outranks city when both exist.
	_ = table.AddLabelColumn("state", make([]string, table.RowCount()))
	if got := RegionColumn(table); got != "state" {
		t.Errorf("expected state to win, got %q", got)
	}
}

func TestCompareRegions_RankedHighestFirst(t *testing.T) {
	comparison, err := CompareRegions(regionalTable(20), nil, "pm2_5", "mean")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if comparison.ByRegion["delhi"] != 80 || comparison.ByRegion["agra"] != 30 {
		t.Errorf("unexpected means: %v", comparison.ByRegion)
	}
	if len(comparison.Ranked) != 2 || comparison.Ranked[0] != "delhi" {
		t.Errorf("expected delhi ranked first, got %v", comparison.Ranked)
	}
}

func TestCompareRegions_Metrics(t *testing.T) {
	table := regionalTable(20)

	for _, metric := range []string{"mean", "median", "max", "min"} {
		comparison, err := CompareRegions(table, nil, "pm2_5", metric)
		if err != nil {
			t.Fatalf("metric %s: unexpected error: %v", metric, err)
		}
		// Constant per-city values make every metric agree.
		if comparison.ByRegion["delhi"] != 80 {
			t.Errorf("metric %s: expected 80 for delhi, got %g", metric, comparison.ByRegion["delhi"])
		}
	}

	if _, err := CompareRegions(table, nil, "pm2_5", "variance"); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("unknown metric should be rejected, got %v", err)
	}
}

func TestCompareRegions_RequiresRegionColumn(t *testing.T) {
	table := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig()).HourlyTable()
	if _, err := CompareRegions(table, nil, "pm2_5", "mean"); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT without a region column, got %v", err)
	}
}

func TestCompareRegions_ExplicitSubset(t *testing.T) {
	comparison, err := CompareRegions(regionalTable(20), []string{"delhi"}, "pm2_5", "mean")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comparison.ByRegion) != 1 {
		t.Errorf("expected only delhi, got %v", comparison.ByRegion)
	}
}

func TestTrendByRegion_IsolatesThinRegions(t *testing.T) {
	// One healthy region plus one with too few readings for a trend.
	table := regionalTable(40)
	labels := make([]string, table.RowCount())
	for i := range labels {
		labels[i] = "agra"
		if i < 4 {
			labels[i] = "thin"
		}
	}
	_ = table.AddLabelColumn("city", labels)

	trends, err := New().TrendByRegion(table, nil, "pm2_5", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trends.ByRegion["agra"] == nil {
		t.Errorf("agra should produce a trend, errors: %v", trends.Errors)
	}
	if trends.Errors["thin"] == "" {
		t.Error("thin region should record its failure")
	}
	if trends.ByRegion["thin"] != nil {
		t.Error("failed region must not carry a result")
	}
}

func TestForecastByRegion_Defaults(t *testing.T) {
	generator := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig())
	table := generator.WithRegions(generator.HourlyTable(), "agra", "delhi")

	forecasts, err := New().ForecastByRegion(context.Background(), table, nil, "pm2_5", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, region := range []string{"agra", "delhi"} {
		result := forecasts.ByRegion[region]
		if result == nil {
			t.Fatalf("%s should forecast, error: %q", region, forecasts.Errors[region])
		}
		if len(result.FinalForecast) != 24 {
			t.Errorf("%s: default horizon should be 24, got %d", region, len(result.FinalForecast))
		}
	}
}

func TestForecastByRegion_HonorsCancellation(t *testing.T) {
	generator := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig())
	table := generator.WithRegions(generator.HourlyTable(), "agra", "delhi")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().ForecastByRegion(ctx, table, nil, "pm2_5", 12); err == nil {
		t.Fatal("expected a cancellation error")
	}
}
