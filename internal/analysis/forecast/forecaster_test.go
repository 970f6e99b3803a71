package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"airlens/domain/series"
	"airlens/internal/errors"
)

// fakeModel returns a fixed prediction or a fixed error.
type fakeModel struct {
	name       string
	prediction []float64
	err        error
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Forecast(pts []series.Point, horizon int) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, horizon)
	copy(out, m.prediction)
	return out, nil
}

// forecastTable builds a diurnal series with seeded noise; the noise
// keeps the lag regression designs full rank.
func forecastTable(pollutant string, n int) *series.Table {
	rng := rand.New(rand.NewSource(7))
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]series.Point, n)
	for i := range pts {
		pts[i] = series.Point{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Value:     50 + 10*math.Sin(2*math.Pi*float64(i%24)/24) + 0.05*float64(i) + rng.NormFloat64()*1.5,
		}
	}
	return series.FromPoints(pollutant, pts)
}

func TestForecaster_HybridIsElementwiseMean(t *testing.T) {
	a := &fakeModel{name: "a", prediction: []float64{10, 20, 30}}
	b := &fakeModel{name: "b", prediction: []float64{30, 40, 50}}

	forecaster := NewForecasterWithModels(a, b)
	result, err := forecaster.Forecast(forecastTable("pm2_5", 60), "pm2_5", 3, MethodHybrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MethodUsed != "hybrid" {
		t.Errorf("expected method hybrid, got %s", result.MethodUsed)
	}
	want := []float64{20, 30, 40}
	for i, v := range result.FinalForecast {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("hybrid[%d]: want %g, got %g", i, want[i], v)
		}
	}
	if len(result.Predictions) != 3 { // a, b, hybrid
		t.Errorf("expected 3 prediction arrays, got %d", len(result.Predictions))
	}
}

func TestForecaster_SingleSurvivorKeepsItsName(t *testing.T) {
	ok := &fakeModel{name: "a", prediction: []float64{5, 5}}
	broken := &fakeModel{name: "b", err: fmt.Errorf("fit failed")}

	forecaster := NewForecasterWithModels(ok, broken)
	result, err := forecaster.Forecast(forecastTable("pm2_5", 60), "pm2_5", 2, MethodHybrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MethodUsed != "a" {
		t.Errorf("single survivor should label the result, got %s", result.MethodUsed)
	}
	if result.ModelErrors["b"] == "" {
		t.Error("failed model should leave its error in the result")
	}
}

func TestForecaster_AllModelsFailing(t *testing.T) {
	forecaster := NewForecasterWithModels(
		&fakeModel{name: "a", err: fmt.Errorf("boom")},
		&fakeModel{name: "b", err: fmt.Errorf("bust")},
	)
	_, err := forecaster.Forecast(forecastTable("pm2_5", 60), "pm2_5", 4, MethodHybrid)
	if !errors.IsCode(err, errors.CodeForecastFailed) {
		t.Fatalf("expected FORECAST_FAILED, got %v", err)
	}
}

func TestForecaster_TimestampsFollowLastObservation(t *testing.T) {
	forecaster := NewForecasterWithModels(&fakeModel{name: "a", prediction: []float64{1, 2, 3, 4}})
	table := forecastTable("pm2_5", 60)
	result, err := forecaster.Forecast(table, "pm2_5", 4, MethodHybrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Timestamps) != 4 {
		t.Fatalf("expected 4 timestamps, got %d", len(result.Timestamps))
	}
	for i, ts := range result.Timestamps {
		want := result.LastHistorical.Add(time.Duration(i+1) * time.Hour)
		if !ts.Equal(want) {
			t.Errorf("timestamp %d: want %s, got %s", i, want, ts)
		}
	}
}

func TestForecaster_InputContract(t *testing.T) {
	forecaster := NewForecasterWithModels(&fakeModel{name: "a", prediction: []float64{1}})

	if _, err := forecaster.Forecast(forecastTable("pm2_5", 60), "pm2_5", 0, MethodHybrid); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("zero horizon: expected INVALID_INPUT, got %v", err)
	}
	if _, err := forecaster.Forecast(forecastTable("pm2_5", 60), "o3", 4, MethodHybrid); !errors.IsCode(err, errors.CodeColumnNotFound) {
		t.Errorf("missing column: expected COLUMN_NOT_FOUND, got %v", err)
	}
	if _, err := forecaster.Forecast(forecastTable("pm2_5", 20), "pm2_5", 4, MethodHybrid); !errors.IsCode(err, errors.CodeInsufficientData) {
		t.Errorf("short series: expected INSUFFICIENT_DATA, got %v", err)
	}
}

func TestARIMAModel_ProducesFiniteForecast(t *testing.T) {
	model := NewARIMAModel()
	table := forecastTable("pm2_5", 96)
	pts, _ := table.Slice("pm2_5")

	forecast, err := model.Forecast(pts, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forecast) != 24 {
		t.Fatalf("expected 24 steps, got %d", len(forecast))
	}
	for i, v := range forecast {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite forecast at step %d", i)
		}
	}
}

func TestARIMAModel_RejectsShortSeries(t *testing.T) {
	model := NewARIMAModel()
	table := forecastTable("pm2_5", 10)
	pts, _ := table.Slice("pm2_5")
	if _, err := model.Forecast(pts, 4); err == nil {
		t.Fatal("expected an error for a 10-point series")
	}
}

func TestEnsembleModel_Deterministic(t *testing.T) {
	table := forecastTable("pm2_5", 150)
	pts, _ := table.Slice("pm2_5")

	first, err := NewEnsembleModel().Forecast(pts, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := NewEnsembleModel().Forecast(pts, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != 12 {
		t.Fatalf("expected 12 steps, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fixed-seed ensemble diverged at step %d: %g != %g", i, first[i], second[i])
		}
	}
}

func TestEnsembleModel_SkipsThinHistory(t *testing.T) {
	table := forecastTable("pm2_5", 60)
	pts, _ := table.Slice("pm2_5")
	if _, err := NewEnsembleModel().Forecast(pts, 12); err == nil {
		t.Fatal("expected an error with fewer than 100 feature rows")
	}
}
