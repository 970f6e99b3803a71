package forecast

import (
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"airlens/domain/analysis"
	"airlens/domain/series"
	"airlens/internal/errors"
)

// Method selects which sub-models run.
type Method string

const (
	MethodARIMA    Method = "arima"
	MethodEnsemble Method = "ensemble"
	MethodHybrid   Method = "hybrid"
)

// minPoints is two days of hourly readings, the least history any
// sub-model is given.
const minPoints = 48

// Model is a single forecasting sub-method. Implementations are pure:
// they read the series and return a horizon-length prediction array.
type Model interface {
	Name() string
	Forecast(pts []series.Point, horizon int) ([]float64, error)
}

// Forecaster blends independent sub-models into a hybrid projection.
// A sub-model failure is recorded and the rest continue; only when every
// sub-model fails does the whole forecast fail.
type Forecaster struct {
	models []Model
}

// NewForecaster creates a forecaster with the standard sub-models: an
// ARIMA(1,1,1) statistical model and a feature-engineered tree ensemble.
func NewForecaster() *Forecaster {
	return &Forecaster{models: []Model{NewARIMAModel(), NewEnsembleModel()}}
}

// NewForecasterWithModels creates a forecaster over explicit sub-models.
func NewForecasterWithModels(models ...Model) *Forecaster {
	return &Forecaster{models: models}
}

// Forecast projects one pollutant horizon steps ahead at hourly cadence.
func (f *Forecaster) Forecast(table *series.Table, pollutant string, horizon int, method Method) (*analysis.ForecastResult, error) {
	if horizon <= 0 {
		return nil, errors.InvalidInput("forecast horizon must be positive")
	}

	pts, ok := table.Slice(pollutant)
	if !ok {
		return nil, errors.ColumnNotFound(pollutant)
	}
	if len(pts) < minPoints {
		return nil, errors.InsufficientData("forecasting", len(pts), minPoints)
	}

	result := &analysis.ForecastResult{
		Pollutant:      pollutant,
		Horizon:        horizon,
		Predictions:    make(map[string][]float64),
		ModelErrors:    make(map[string]string),
		LastHistorical: pts[len(pts)-1].Timestamp,
	}

	for _, model := range f.selectModels(method) {
		prediction, err := model.Forecast(pts, horizon)
		if err != nil {
			result.ModelErrors[model.Name()] = err.Error()
			continue
		}
		result.Predictions[model.Name()] = prediction
	}

	switch len(result.Predictions) {
	case 0:
		reasons := make([]string, 0, len(result.ModelErrors))
		for name, msg := range result.ModelErrors {
			reasons = append(reasons, name+": "+msg)
		}
		return nil, errors.ForecastFailed("no forecast model succeeded (" + strings.Join(reasons, "; ") + ")")
	case 1:
		for name, prediction := range result.Predictions {
			result.MethodUsed = name
			result.FinalForecast = prediction
		}
	default:
		hybrid := blendPredictions(result.Predictions, horizon)
		result.Predictions[string(MethodHybrid)] = hybrid
		result.MethodUsed = string(MethodHybrid)
		result.FinalForecast = hybrid
	}

	result.Stats = summarize(result.FinalForecast)
	result.Timestamps = hourlySteps(result.LastHistorical, horizon)
	return result, nil
}

func (f *Forecaster) selectModels(method Method) []Model {
	if method == MethodHybrid || method == "" {
		return f.models
	}
	for _, m := range f.models {
		if m.Name() == string(method) {
			return []Model{m}
		}
	}
	return nil
}

// blendPredictions is the element-wise mean across all successful
// sub-model outputs.
func blendPredictions(predictions map[string][]float64, horizon int) []float64 {
	hybrid := make([]float64, horizon)
	for step := 0; step < horizon; step++ {
		sum := 0.0
		count := 0
		for _, prediction := range predictions {
			sum += prediction[step]
			count++
		}
		hybrid[step] = sum / float64(count)
	}
	return hybrid
}

func summarize(forecast []float64) analysis.ForecastStats {
	min, _ := stats.Min(forecast)
	max, _ := stats.Max(forecast)
	mean, _ := stats.Mean(forecast)
	std, _ := stats.StandardDeviation(forecast)
	return analysis.ForecastStats{Min: min, Max: max, Mean: mean, Std: std}
}

// hourlySteps generates the forecast timestamps, one per step, starting
// one hour after the last historical observation.
func hourlySteps(last time.Time, horizon int) []time.Time {
	out := make([]time.Time, horizon)
	for i := 0; i < horizon; i++ {
		out[i] = last.Add(time.Duration(i+1) * time.Hour)
	}
	return out
}
