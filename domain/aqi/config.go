package aqi

import (
	"fmt"
	"strings"
)

// IndexScale is the fixed AQI scale shared by every pollutant. Each
// breakpoint table has exactly one threshold fewer than this scale.
var IndexScale = [7]int{0, 50, 100, 150, 200, 300, 500}

// MaxIndex is the AQI ceiling applied when a concentration exceeds the
// last breakpoint.
const MaxIndex = 500

// Category is an air quality classification band.
type Category string

const (
	CategoryGood          Category = "Good"
	CategoryModerate      Category = "Moderate"
	CategorySensitive     Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     Category = "Unhealthy"
	CategoryVeryUnhealthy Category = "Very Unhealthy"
	CategoryHazardous     Category = "Hazardous"
)

// CategoryForIndex maps an AQI value to its classification band and color.
func CategoryForIndex(index int) (Category, string) {
	switch {
	case index <= 50:
		return CategoryGood, "green"
	case index <= 100:
		return CategoryModerate, "yellow"
	case index <= 150:
		return CategorySensitive, "orange"
	case index <= 200:
		return CategoryUnhealthy, "red"
	case index <= 300:
		return CategoryVeryUnhealthy, "purple"
	default:
		return CategoryHazardous, "maroon"
	}
}

// healthAdvice is the closed advisory lookup, one entry per band.
var healthAdvice = map[Category]string{
	CategoryGood:          "Air quality is satisfactory and poses little or no health risk",
	CategoryModerate:      "Air quality is acceptable, though sensitive individuals may notice mild irritation",
	CategorySensitive:     "Members of sensitive groups may experience health effects",
	CategoryUnhealthy:     "Everyone may begin to experience health effects",
	CategoryVeryUnhealthy: "Health alert: the risk of adverse effects is increased for everyone",
	CategoryHazardous:     "Health emergency: the entire population is likely to be affected",
}

// HealthAdvice returns the advisory text for a classification band.
func HealthAdvice(c Category) string {
	if advice, ok := healthAdvice[c]; ok {
		return advice
	}
	return "No advisory available"
}

// PollutantConfig describes one pollutant's unit and breakpoint table.
// Breakpoints are concentration thresholds, strictly increasing, paired
// segment-wise with IndexScale.
type PollutantConfig struct {
	Unit        string
	Breakpoints [6]float64
}

// Config is the immutable breakpoint configuration injected into the AQI
// calculator. Construct through DefaultConfig or NewConfig; never mutate.
type Config struct {
	pollutants map[string]PollutantConfig
	order      []string
}

// CanonicalOrder is the pollutant iteration order. It also breaks ties
// when several pollutants share the maximum index: the earliest entry wins.
var CanonicalOrder = []string{"PM2.5", "PM10", "NO2", "SO2", "CO", "O3"}

// columnAliases maps raw dataset field names onto canonical pollutant
// names. rspm/spm are suspended-particulate fields reported by older
// monitoring networks and are treated as PM10.
var columnAliases = map[string]string{
	"pm2.5": "PM2.5",
	"pm2_5": "PM2.5",
	"pm25":  "PM2.5",
	"pm10":  "PM10",
	"rspm":  "PM10",
	"spm":   "PM10",
	"no2":   "NO2",
	"so2":   "SO2",
	"co":    "CO",
	"o3":    "O3",
	"ozone": "O3",
}

// CanonicalPollutant resolves a raw column name to its standardized
// pollutant name, or "" when the column is not a known pollutant field.
func CanonicalPollutant(column string) string {
	return columnAliases[strings.ToLower(strings.TrimSpace(column))]
}

// DefaultConfig returns the built-in breakpoint tables (EPA-style scales;
// particulates in µg/m³, gases in ppb except CO in ppm).
func DefaultConfig() *Config {
	cfg, err := NewConfig(map[string]PollutantConfig{
		"PM2.5": {Unit: "µg/m³", Breakpoints: [6]float64{12, 35.4, 55.4, 150.4, 250.4, 500.4}},
		"PM10":  {Unit: "µg/m³", Breakpoints: [6]float64{54, 154, 254, 354, 424, 604}},
		"NO2":   {Unit: "ppb", Breakpoints: [6]float64{53, 100, 360, 649, 1249, 2049}},
		"SO2":   {Unit: "ppb", Breakpoints: [6]float64{35, 75, 185, 304, 604, 1004}},
		"CO":    {Unit: "ppm", Breakpoints: [6]float64{4.4, 9.4, 12.4, 15.4, 30.4, 50.4}},
		"O3":    {Unit: "ppb", Breakpoints: [6]float64{54, 70, 85, 105, 200, 404}},
	})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return cfg
}

// NewConfig validates and freezes a breakpoint configuration.
func NewConfig(pollutants map[string]PollutantConfig) (*Config, error) {
	frozen := make(map[string]PollutantConfig, len(pollutants))
	for name, pc := range pollutants {
		for i := 1; i < len(pc.Breakpoints); i++ {
			if pc.Breakpoints[i] <= pc.Breakpoints[i-1] {
				return nil, fmt.Errorf("pollutant %s: breakpoints must be strictly increasing at position %d", name, i)
			}
		}
		if pc.Breakpoints[0] <= 0 {
			return nil, fmt.Errorf("pollutant %s: first breakpoint must be positive", name)
		}
		frozen[name] = pc
	}

	order := make([]string, 0, len(frozen))
	for _, name := range CanonicalOrder {
		if _, ok := frozen[name]; ok {
			order = append(order, name)
		}
	}
	// Pollutants outside the canonical list keep a stable tail position.
	for name := range frozen {
		known := false
		for _, o := range order {
			if o == name {
				known = true
				break
			}
		}
		if !known {
			order = append(order, name)
		}
	}

	return &Config{pollutants: frozen, order: order}, nil
}

// Pollutant returns the configuration for a canonical pollutant name.
func (c *Config) Pollutant(name string) (PollutantConfig, bool) {
	pc, ok := c.pollutants[name]
	return pc, ok
}

// Order returns the deterministic pollutant iteration order.
func (c *Config) Order() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
