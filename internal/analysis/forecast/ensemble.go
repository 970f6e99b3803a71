package forecast

import (
	"fmt"
	"time"

	"airlens/domain/series"
)

// Feature layout for the ensemble regressors.
const (
	featHour = iota
	featDayOfWeek
	featMonth
	featLag1
	featLag24
	featRollMean7
	featureCount
)

// minFeatureRows is the training floor; with fewer complete feature rows
// the ensemble is skipped rather than fit badly.
const minFeatureRows = 100

// lagDay is one day of hourly readings.
const lagDay = 24

// rollWindow is the short rolling-mean regressor width.
const rollWindow = 7

// EnsembleModel forecasts with a bagged regression forest over calendar
// and lag features.
type EnsembleModel struct {
	trees    int
	maxDepth int
	minLeaf  int
	seed     int64
}

// NewEnsembleModel creates the standard ensemble sub-model. The seed is
// fixed so repeated runs over the same data produce the same forecast.
func NewEnsembleModel() *EnsembleModel {
	return &EnsembleModel{trees: 100, maxDepth: 12, minLeaf: 2, seed: 42}
}

// Name implements Model.
func (m *EnsembleModel) Name() string { return "ensemble" }

// Forecast implements Model. It trains on the historical rows with
// complete features and then walks the horizon step by step, feeding
// each prediction back as the next step's lag-1 value. The lag-24
// regressor is pinned to the observation one day before the series end
// (falling back to the last value on short series) and the rolling mean
// is held at its last historical value across the whole horizon.
func (m *EnsembleModel) Forecast(pts []series.Point, horizon int) ([]float64, error) {
	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}

	features, targets := buildTrainingRows(pts, values)
	if len(features) < minFeatureRows {
		return nil, fmt.Errorf("only %d complete feature rows, need at least %d", len(features), minFeatureRows)
	}

	forest := newForest(m.trees, m.maxDepth, m.minLeaf, m.seed)
	forest.fit(features, targets)

	n := len(values)
	lag24 := values[n-1]
	if n >= lagDay {
		lag24 = values[n-lagDay]
	}
	rollMean := tailMean(values, rollWindow)

	last := pts[len(pts)-1].Timestamp
	forecast := make([]float64, horizon)
	lag1 := values[n-1]
	for step := 0; step < horizon; step++ {
		ts := last.Add(time.Duration(step+1) * time.Hour)
		row := featureRow(ts, lag1, lag24, rollMean)
		forecast[step] = forest.predict(row)
		lag1 = forecast[step]
	}
	return forecast, nil
}

// buildTrainingRows derives the regressor matrix from the rows where
// every feature is defined (one day of lag history plus the rolling
// window).
func buildTrainingRows(pts []series.Point, values []float64) ([][]float64, []float64) {
	start := lagDay
	if start < rollWindow-1 {
		start = rollWindow - 1
	}

	features := make([][]float64, 0, len(values))
	targets := make([]float64, 0, len(values))
	for i := start; i < len(values); i++ {
		roll := 0.0
		for j := i - rollWindow + 1; j <= i; j++ {
			roll += values[j]
		}
		roll /= rollWindow

		features = append(features, featureRow(pts[i].Timestamp, values[i-1], values[i-lagDay], roll))
		targets = append(targets, values[i])
	}
	return features, targets
}

func featureRow(ts time.Time, lag1, lag24, rollMean float64) []float64 {
	row := make([]float64, featureCount)
	row[featHour] = float64(ts.Hour())
	row[featDayOfWeek] = float64(pythonWeekday(ts.Weekday()))
	row[featMonth] = float64(ts.Month())
	row[featLag1] = lag1
	row[featLag24] = lag24
	row[featRollMean7] = rollMean
	return row
}

// pythonWeekday maps Go's Sunday-first weekday onto the Monday=0
// convention the training data uses.
func pythonWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func tailMean(values []float64, window int) float64 {
	if len(values) < window {
		window = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}
