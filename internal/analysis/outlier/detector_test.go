package outlier

import (
	"testing"
	"time"

	"airlens/domain/series"
)

func hourlySeries(values []float64) []series.Point {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]series.Point, len(values))
	for i, v := range values {
		pts[i] = series.Point{Timestamp: start.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return pts
}

func TestDetector_MADFlagsInjectedSpike(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 50 + float64(i%5) // 50..54, tight band
	}
	values[42] = 500

	detector := NewDetector()
	cleaned, report := detector.Detect("pm2_5", hourlySeries(values), MethodMAD, Params{Sensitivity: SensitivityHigh})

	if report.AnomaliesDetected != 1 {
		t.Fatalf("expected exactly 1 anomaly, got %d", report.AnomaliesDetected)
	}
	if len(cleaned) != 99 {
		t.Fatalf("expected 99 surviving points, got %d", len(cleaned))
	}
	for _, p := range cleaned {
		if p.Value == 500 {
			t.Error("spike survived cleaning")
		}
	}
	if report.ThresholdUsed != 2.5 {
		t.Errorf("high sensitivity should use threshold 2.5, got %g", report.ThresholdUsed)
	}
	if report.Bounds == nil {
		t.Fatal("report should carry the bounds used")
	}
}

func TestDetector_EmptyInput(t *testing.T) {
	detector := NewDetector()
	cleaned, report := detector.Detect("pm2_5", nil, MethodMAD, Params{})

	if !report.NoData {
		t.Error("empty input should set the no-data condition")
	}
	if report.AnomaliesDetected != 0 {
		t.Errorf("empty input should report 0 anomalies, got %d", report.AnomaliesDetected)
	}
	if len(cleaned) != 0 {
		t.Errorf("empty input should come back unchanged, got %d points", len(cleaned))
	}
}

func TestDetector_ConstantSeriesKeepsAllPoints(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 42
	}

	detector := NewDetector()
	cleaned, report := detector.Detect("pm2_5", hourlySeries(values), MethodMAD, Params{Sensitivity: SensitivityMedium})

	if report.AnomaliesDetected != 0 {
		t.Errorf("constant series should flag nothing, got %d", report.AnomaliesDetected)
	}
	if len(cleaned) != 50 {
		t.Errorf("expected all 50 points kept, got %d", len(cleaned))
	}
	if report.Median != 42 {
		t.Errorf("expected median 42, got %g", report.Median)
	}
}

func TestDetector_NearConstantUsesStdFallback(t *testing.T) {
	// Over half the values identical makes MAD zero while the sample
	// standard deviation stays positive; the band must not collapse.
	values := []float64{10, 10, 10, 10, 10, 10, 10, 12, 8, 11, 9, 10, 10, 10}

	detector := NewDetector()
	cleaned, report := detector.Detect("no2", hourlySeries(values), MethodMAD, Params{Sensitivity: SensitivityLow})

	if report.Bounds.Upper <= report.Bounds.Lower {
		t.Fatalf("bounds collapsed: [%g, %g]", report.Bounds.Lower, report.Bounds.Upper)
	}
	if len(cleaned) == 0 {
		t.Error("fallback band should keep the bulk of the series")
	}
}

func TestDetector_IQR(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(20 + i%10)
	}
	values[10] = 1000

	detector := NewDetector()
	cleaned, report := detector.Detect("pm10", hourlySeries(values), MethodIQR, Params{})

	if report.AnomaliesDetected != 1 {
		t.Errorf("expected 1 anomaly via IQR, got %d", report.AnomaliesDetected)
	}
	if len(cleaned) != 39 {
		t.Errorf("expected 39 points after IQR cleaning, got %d", len(cleaned))
	}
	if report.Method != "iqr" {
		t.Errorf("report should record the method, got %q", report.Method)
	}
}

func TestDetector_ZScoreDefaultThreshold(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 30 + float64(i%7)
	}
	values[30] = 300

	detector := NewDetector()
	_, report := detector.Detect("so2", hourlySeries(values), MethodZScore, Params{})

	if report.ThresholdUsed != DefaultZThreshold {
		t.Errorf("expected default z threshold %g, got %g", DefaultZThreshold, report.ThresholdUsed)
	}
	if report.AnomaliesDetected != 1 {
		t.Errorf("expected 1 anomaly via z-score, got %d", report.AnomaliesDetected)
	}
}

func TestDetector_DoesNotMutateInput(t *testing.T) {
	values := []float64{10, 11, 12, 500, 13, 12, 11, 10, 12, 11, 13, 12}
	pts := hourlySeries(values)

	detector := NewDetector()
	detector.Detect("co", pts, MethodMAD, Params{Sensitivity: SensitivityHigh})

	for i, p := range pts {
		if p.Value != values[i] {
			t.Fatalf("input slice mutated at %d: %g != %g", i, p.Value, values[i])
		}
	}
}

func TestResolveMADThreshold_AutoTracksVariability(t *testing.T) {
	low := make([]float64, 100)
	for i := range low {
		low[i] = 100 + float64(i%3) // CV well under 0.5
	}
	if got := resolveMADThreshold(low, SensitivityAuto); got != 2.5 {
		t.Errorf("low-variability auto threshold: want 2.5, got %g", got)
	}

	// A heavily skewed series pushes CV over 1.0.
	high := make([]float64, 100)
	for i := range high {
		if i%20 == 0 {
			high[i] = 2000
		} else {
			high[i] = 1
		}
	}
	if got := resolveMADThreshold(high, SensitivityAuto); got != 3.5 {
		t.Errorf("high-variability auto threshold: want 3.5, got %g", got)
	}
}
