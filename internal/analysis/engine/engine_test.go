package engine

import (
	"context"
	"testing"
	"time"

	"airlens/domain/series"
	"airlens/internal/errors"
	"airlens/internal/testkit"
)

func TestEngine_FullRun(t *testing.T) {
	table := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig()).HourlyTable()

	run, err := New().Run(context.Background(), table, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.TargetPollutant != "pm2_5" {
		t.Errorf("expected pm2_5 auto-selected, got %s", run.TargetPollutant)
	}
	if run.Cleaning == nil {
		t.Fatal("expected a cleaning report")
	}
	if run.Trend == nil {
		t.Fatalf("expected a trend result, got error %q", run.TrendError)
	}
	if run.Forecast == nil {
		t.Fatalf("expected a forecast, got error %q", run.ForecastError)
	}
	if len(run.Forecast.FinalForecast) != 24 {
		t.Errorf("default horizon should yield 24 steps, got %d", len(run.Forecast.FinalForecast))
	}
	if run.Seasonal == nil {
		t.Fatalf("expected a seasonal result, got error %q", run.SeasonalError)
	}
	if len(run.Seasonal.HourlyPatterns) != 24 {
		t.Errorf("expected 24 hourly buckets, got %d", len(run.Seasonal.HourlyPatterns))
	}
	if run.Correlations == nil {
		t.Fatalf("expected correlations, got error %q", run.CorrelationError)
	}
	top := run.Correlations.TopPairs[0]
	if top.PollutantA != "pm10" && top.PollutantB != "pm10" {
		t.Errorf("pm10 tracks pm2_5 and should be in the top pair, got %s/%s", top.PollutantA, top.PollutantB)
	}
	if run.AQI == nil || run.AQI.Overall == nil {
		t.Fatal("expected an overall AQI")
	}
	if run.BasicStats == nil || run.BasicStats.Count == 0 {
		t.Error("expected basic statistics over the cleaned series")
	}
	if run.Yearly != nil {
		t.Error("single-year data should not produce a yearly summary")
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Error("run should carry identity and creation time")
	}
}

func TestEngine_FailureIsolation(t *testing.T) {
	// 30 hourly readings: enough for trend and seasonal analysis but too
	// few for any forecast model, and only one pollutant column so the
	// correlation step fails too.
	cfg := testkit.DefaultSeriesConfig()
	cfg.Hours = 30
	pts := testkit.NewSeriesGenerator(cfg).HourlyPoints()
	table := series.FromPoints("pm2_5", pts)

	run, err := New().Run(context.Background(), table, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Forecast != nil || run.ForecastError == "" {
		t.Error("forecast should fail on 30 points and leave an error string")
	}
	if run.Correlations != nil || run.CorrelationError == "" {
		t.Error("correlation should fail with one pollutant and leave an error string")
	}
	if run.Trend == nil {
		t.Errorf("trend should survive sibling failures, got error %q", run.TrendError)
	}
	if run.Seasonal == nil {
		t.Errorf("seasonal should survive sibling failures, got error %q", run.SeasonalError)
	}
	if run.AQI == nil {
		t.Error("AQI should survive sibling failures")
	}
}

func TestEngine_NoUsablePollutant(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, 20)
	temps := make([]float64, 20)
	present := make([]bool, 20)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		temps[i] = 20
		present[i] = true
	}
	table := series.New(ts)
	_ = table.AddColumn("temperature", temps, present)

	_, err := New().Run(context.Background(), table, Options{})
	if !errors.IsCode(err, errors.CodeNoData) {
		t.Fatalf("expected NO_DATA, got %v", err)
	}
}

func TestEngine_ExplicitMissingColumn(t *testing.T) {
	table := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig()).HourlyTable()

	_, err := New().Run(context.Background(), table, Options{Pollutant: "o3"})
	if !errors.IsCode(err, errors.CodeColumnNotFound) {
		t.Fatalf("expected COLUMN_NOT_FOUND, got %v", err)
	}
}

func TestEngine_YearlySummary(t *testing.T) {
	// Four days each in 2023 and 2024, with the later year twice as high.
	start := time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC)
	pts := make([]series.Point, 8*24)
	for i := range pts {
		ts := start.Add(time.Duration(i) * time.Hour)
		value := 10.0
		if ts.Year() == 2024 {
			value = 20
		}
		pts[i] = series.Point{Timestamp: ts, Value: value}
	}

	run, err := New().Run(context.Background(), series.FromPoints("pm2_5", pts), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Yearly == nil {
		t.Fatal("expected a yearly summary across two years")
	}
	if run.Yearly.Direction != "rise" {
		t.Errorf("expected rise, got %s", run.Yearly.Direction)
	}
	if run.Yearly.ChangePercentage != 100 {
		t.Errorf("expected 100%% change, got %g", run.Yearly.ChangePercentage)
	}
	if run.Yearly.Period != "2023-2024" {
		t.Errorf("expected period 2023-2024, got %s", run.Yearly.Period)
	}
	if run.Yearly.YearsAnalyzed != 2 {
		t.Errorf("expected 2 years, got %d", run.Yearly.YearsAnalyzed)
	}
}

func TestSelectTargetPollutant_CanonicalOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, 20)
	values := make([]float64, 20)
	present := make([]bool, 20)
	thin := make([]bool, 20)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		values[i] = 30
		present[i] = true
		thin[i] = i < 5 // below the auto-selection minimum
	}

	table := series.New(ts)
	_ = table.AddColumn("no2", values, present)
	_ = table.AddColumn("pm10", values, present)
	_ = table.AddColumn("pm2_5", values, thin)

	// PM2.5 ranks first but is too thin, so PM10 wins over NO2.
	if got := SelectTargetPollutant(table); got != "pm10" {
		t.Errorf("expected pm10, got %q", got)
	}
}

func TestPollutantColumns_IgnoresNonPollutants(t *testing.T) {
	table := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig()).HourlyTable()
	temps := make([]float64, table.RowCount())
	present := make([]bool, table.RowCount())
	for i := range temps {
		temps[i] = 18
		present[i] = true
	}
	_ = table.AddColumn("temperature", temps, present)

	columns := PollutantColumns(table)
	if len(columns) != 3 {
		t.Fatalf("expected 3 pollutant columns, got %v", columns)
	}
	for _, c := range columns {
		if c == "temperature" {
			t.Error("temperature is not a pollutant column")
		}
	}
}
