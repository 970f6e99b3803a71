package testkit

import (
	"math"
	"math/rand"
	"time"

	"airlens/domain/series"
)

// SeriesGeneratorConfig configures the synthetic pollution generator.
type SeriesGeneratorConfig struct {
	Hours        int       `json:"hours"`
	StartDate    time.Time `json:"start_date"`
	BaseLevel    float64   `json:"base_level"`
	DailySwing   float64   `json:"daily_swing"`
	TrendPerHour float64   `json:"trend_per_hour"`
	NoiseStd     float64   `json:"noise_std"`
	Seed         int64     `json:"seed"`
}

// DefaultSeriesConfig returns sensible defaults: two weeks of hourly
// readings around a typical urban PM2.5 level.
func DefaultSeriesConfig() SeriesGeneratorConfig {
	return SeriesGeneratorConfig{
		Hours:        14 * 24,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		BaseLevel:    35,
		DailySwing:   10,
		TrendPerHour: 0,
		NoiseStd:     2,
		Seed:         42,
	}
}

// SeriesGenerator produces reproducible pollution measurement fixtures.
type SeriesGenerator struct {
	config SeriesGeneratorConfig
	rng    *rand.Rand
}

// NewSeriesGenerator creates a generator over a fixed seed.
func NewSeriesGenerator(config SeriesGeneratorConfig) *SeriesGenerator {
	return &SeriesGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// HourlyPoints generates one pollutant series with a diurnal cycle
// peaking in the evening, an optional linear drift, and gaussian noise.
// Values are clamped at zero since concentrations cannot go negative.
func (g *SeriesGenerator) HourlyPoints() []series.Point {
	pts := make([]series.Point, g.config.Hours)
	for i := range pts {
		ts := g.config.StartDate.Add(time.Duration(i) * time.Hour)
		diurnal := g.config.DailySwing * math.Sin(2*math.Pi*float64(ts.Hour()-6)/24)
		value := g.config.BaseLevel +
			diurnal +
			g.config.TrendPerHour*float64(i) +
			g.rng.NormFloat64()*g.config.NoiseStd
		if value < 0 {
			value = 0
		}
		pts[i] = series.Point{Timestamp: ts, Value: value}
	}
	return pts
}

// HourlyTable generates a multi-pollutant table. PM10 tracks PM2.5 with
// a fixed scale plus noise so the pair correlates strongly; NO2 is an
// independent series, so its correlations stay weak.
func (g *SeriesGenerator) HourlyTable() *series.Table {
	pm25 := g.HourlyPoints()

	timestamps := make([]time.Time, len(pm25))
	pm25Values := make([]float64, len(pm25))
	pm10Values := make([]float64, len(pm25))
	no2Values := make([]float64, len(pm25))
	present := make([]bool, len(pm25))
	for i, p := range pm25 {
		timestamps[i] = p.Timestamp
		pm25Values[i] = p.Value
		pm10Values[i] = p.Value*1.8 + g.rng.NormFloat64()*1.5
		no2Values[i] = 40 + g.rng.NormFloat64()*8
		present[i] = true
	}

	t := series.New(timestamps)
	t.Columns["pm2_5"] = series.Column{Values: pm25Values, Present: present}
	t.Columns["pm10"] = series.Column{Values: pm10Values, Present: presentCopy(present)}
	t.Columns["no2"] = series.Column{Values: no2Values, Present: presentCopy(present)}
	return t
}

// WithRegions splits the table rows round-robin across the given region
// names under a "city" label column.
func (g *SeriesGenerator) WithRegions(t *series.Table, regions ...string) *series.Table {
	labels := make([]string, t.RowCount())
	for i := range labels {
		labels[i] = regions[i%len(regions)]
	}
	t.Labels["city"] = labels
	return t
}

// InjectSpike replaces one reading with an extreme value so outlier
// detection has something unambiguous to find.
func InjectSpike(pts []series.Point, index int, value float64) []series.Point {
	out := make([]series.Point, len(pts))
	copy(out, pts)
	out[index].Value = value
	return out
}

func presentCopy(mask []bool) []bool {
	out := make([]bool, len(mask))
	copy(out, mask)
	return out
}
