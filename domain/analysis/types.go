package analysis

import (
	"time"

	"airlens/domain/core"
)

// Direction labels the overall movement of a composite trend.
type Direction string

const (
	DirectionRise   Direction = "rise"
	DirectionFall   Direction = "fall"
	DirectionStable Direction = "stable"
)

// Bounds is the inclusive value band used by an outlier method.
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// AnomalyReport summarizes one cleaning pass over a pollutant series.
type AnomalyReport struct {
	Pollutant         string  `json:"pollutant"`
	Method            string  `json:"method"`
	AnomaliesDetected int     `json:"anomalies_detected"`
	AnomalyPercentage float64 `json:"anomaly_percentage"`
	ThresholdUsed     float64 `json:"threshold_used,omitempty"`
	Median            float64 `json:"median,omitempty"`
	Bounds            *Bounds `json:"bounds,omitempty"`
	NoData            bool    `json:"no_data,omitempty"`
}

// LinearTrend is the ordinary least squares fit of value against elapsed
// seconds since the first observation.
type LinearTrend struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	RSquared  float64   `json:"r_squared"`
	Values    []float64 `json:"values"`
}

// MovingAverage is the centered rolling mean. Edge positions where the
// window cannot center are nil.
type MovingAverage struct {
	WindowSize int        `json:"window_size"`
	Values     []*float64 `json:"values"`
}

// Decomposition is the additive separation into trend, seasonal, and
// residual components. Trend and residual are nil at the edges.
type Decomposition struct {
	Period   int        `json:"period"`
	Trend    []*float64 `json:"trend"`
	Seasonal []float64  `json:"seasonal"`
	Residual []*float64 `json:"residual"`
}

// TrendResult bundles per-method trend outputs and the blended composite.
type TrendResult struct {
	Pollutant          string         `json:"pollutant"`
	PeriodDays         int            `json:"period_days"`
	DataPoints         int            `json:"data_points"`
	Linear             *LinearTrend   `json:"linear_trend,omitempty"`
	MovingAverage      *MovingAverage `json:"moving_avg,omitempty"`
	Decomposition      *Decomposition `json:"decomposition,omitempty"`
	DecompositionError string         `json:"decomposition_error,omitempty"`
	Composite          []float64      `json:"composite_trend,omitempty"`
	Direction          Direction      `json:"overall_direction,omitempty"`
	ChangePercentage   float64        `json:"change_percentage"`
}

// ForecastStats are summary statistics over the chosen final forecast.
type ForecastStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ForecastResult carries per-model prediction arrays plus the selected
// final forecast and its hourly timestamps.
type ForecastResult struct {
	Pollutant      string               `json:"pollutant"`
	Horizon        int                  `json:"forecast_horizon"`
	MethodUsed     string               `json:"method_used"`
	Predictions    map[string][]float64 `json:"all_predictions"`
	FinalForecast  []float64            `json:"final_forecast"`
	Stats          ForecastStats        `json:"forecast_stats"`
	Timestamps     []time.Time          `json:"forecast_dates"`
	LastHistorical time.Time            `json:"last_historical_date"`
	ModelErrors    map[string]string    `json:"model_errors,omitempty"`
}

// AqiRecord is the standardized index for a single pollutant.
type AqiRecord struct {
	Pollutant     string  `json:"pollutant"`
	Concentration float64 `json:"concentration"`
	Unit          string  `json:"unit"`
	Index         int     `json:"aqi"`
	Category      string  `json:"category"`
	Color         string  `json:"color"`
	HealthAdvice  string  `json:"health_advice"`
}

// OverallAqi is the max-of-pollutants aggregate.
type OverallAqi struct {
	Index             int    `json:"aqi"`
	DominantPollutant string `json:"dominant_pollutant"`
	Category          string `json:"category"`
	Color             string `json:"color"`
}

// AqiResult holds per-pollutant records plus the overall aggregate.
// An empty Pollutants map with a nil Overall means no AQI was computable.
type AqiResult struct {
	Pollutants map[string]AqiRecord `json:"pollutants"`
	Overall    *OverallAqi          `json:"overall,omitempty"`
}

// Empty reports whether no pollutant had usable data.
func (r *AqiResult) Empty() bool {
	return r == nil || len(r.Pollutants) == 0
}

// SeasonalBucket is one aggregation group (hour 0-23, weekday 0-6, or
// month 1-12).
type SeasonalBucket struct {
	Key   int     `json:"key"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// PeakHour identifies the hour with the highest mean concentration.
type PeakHour struct {
	Hour          int     `json:"hour"`
	Concentration float64 `json:"concentration"`
}

// Significance is the one-way ANOVA outcome across hourly groups.
type Significance struct {
	FStatistic  float64 `json:"f_statistic"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
}

// Descriptive are plain summary statistics over a window.
type Descriptive struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// SeasonalResult summarizes cyclical patterns for one pollutant.
type SeasonalResult struct {
	Pollutant       string           `json:"pollutant"`
	Period          string           `json:"analysis_period"`
	HourlyPatterns  []SeasonalBucket `json:"hourly_patterns,omitempty"`
	DailyPatterns   []SeasonalBucket `json:"daily_patterns,omitempty"`
	MonthlyPatterns []SeasonalBucket `json:"monthly_patterns,omitempty"`
	Peak            *PeakHour        `json:"peak_hour,omitempty"`
	Significance    *Significance    `json:"statistical_significance,omitempty"`
	Stats           Descriptive      `json:"basic_statistics"`
}

// CorrelationPair is one ranked pollutant relationship.
type CorrelationPair struct {
	PollutantA  string  `json:"pollutant_a"`
	PollutantB  string  `json:"pollutant_b"`
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength"`
	SampleSize  int     `json:"sample_size"`
}

// CorrelationResult holds the pairwise Pearson matrix and the strongest
// relationships ranked by absolute coefficient.
type CorrelationResult struct {
	Pollutants []string                      `json:"pollutants"`
	Matrix     map[string]map[string]float64 `json:"matrix"`
	TopPairs   []CorrelationPair             `json:"top_pairs"`
}

// YearlySummary condenses the long-run movement of yearly averages.
type YearlySummary struct {
	Direction        Direction `json:"overall_direction"`
	ChangePercentage float64   `json:"change_percentage"`
	FirstYearAvg     float64   `json:"first_year_avg"`
	LastYearAvg      float64   `json:"last_year_avg"`
	YearsAnalyzed    int       `json:"years_analyzed"`
	Period           string    `json:"period"`
}

// AnalysisRun is the aggregate outcome of one engine pass over a table.
// Each section carries its own error so one failing component does not
// void the others.
type AnalysisRun struct {
	ID              core.RunID     `json:"id"`
	CreatedAt       core.Timestamp `json:"created_at"`
	TargetPollutant string         `json:"target_pollutant"`

	Cleaning *AnomalyReport `json:"anomalies_stats,omitempty"`

	Trend      *TrendResult `json:"trend,omitempty"`
	TrendError string       `json:"trend_error,omitempty"`

	Forecast      *ForecastResult `json:"forecast,omitempty"`
	ForecastError string          `json:"forecast_error,omitempty"`

	Seasonal      *SeasonalResult `json:"seasonal,omitempty"`
	SeasonalError string          `json:"seasonal_error,omitempty"`

	Correlations     *CorrelationResult `json:"correlations,omitempty"`
	CorrelationError string             `json:"correlation_error,omitempty"`

	AQI *AqiResult `json:"aqi,omitempty"`

	Yearly     *YearlySummary `json:"trend_analysis,omitempty"`
	BasicStats *Descriptive   `json:"basic_statistics,omitempty"`
}
