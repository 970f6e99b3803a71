package airquality

import (
	"math"

	"github.com/montanaflynn/stats"

	"airlens/domain/analysis"
	"airlens/domain/aqi"
	"airlens/domain/series"
)

// Calculator converts raw concentrations to the standardized 0-500 index.
// It operates on uncleaned readings: a regulatory index must reflect what
// was actually measured.
type Calculator struct {
	config *aqi.Config
}

// NewCalculator creates a calculator over a breakpoint configuration.
// A nil config selects the built-in default tables.
func NewCalculator(config *aqi.Config) *Calculator {
	if config == nil {
		config = aqi.DefaultConfig()
	}
	return &Calculator{config: config}
}

// Compute derives per-pollutant and overall AQI records from a table.
// The representative concentration per pollutant is the arithmetic mean
// of all available readings in the window, not just the latest one.
// When no configured pollutant has usable data the result is empty, not
// an error.
func (c *Calculator) Compute(table *series.Table) *analysis.AqiResult {
	result := &analysis.AqiResult{Pollutants: make(map[string]analysis.AqiRecord)}

	columns := resolveColumns(table)
	for _, pollutant := range c.config.Order() {
		column, ok := columns[pollutant]
		if !ok {
			continue
		}
		config, ok := c.config.Pollutant(pollutant)
		if !ok {
			continue
		}

		values := table.Values(column)
		if len(values) == 0 {
			continue
		}
		concentration, _ := stats.Mean(values)

		index := IndexFor(concentration, config.Breakpoints)
		category, color := aqi.CategoryForIndex(index)
		result.Pollutants[pollutant] = analysis.AqiRecord{
			Pollutant:     pollutant,
			Concentration: concentration,
			Unit:          config.Unit,
			Index:         index,
			Category:      string(category),
			Color:         color,
			HealthAdvice:  aqi.HealthAdvice(category),
		}
	}

	if len(result.Pollutants) == 0 {
		return result
	}

	// Overall index: max across pollutants, ties going to the earliest
	// pollutant in canonical order.
	for _, pollutant := range c.config.Order() {
		record, ok := result.Pollutants[pollutant]
		if !ok {
			continue
		}
		if result.Overall == nil || record.Index > result.Overall.Index {
			result.Overall = &analysis.OverallAqi{
				Index:             record.Index,
				DominantPollutant: pollutant,
				Category:          record.Category,
				Color:             record.Color,
			}
		}
	}

	return result
}

// IndexFor maps one concentration onto the AQI scale by piecewise-linear
// interpolation over the pollutant's breakpoint table. Concentrations
// beyond the last breakpoint hit the 500 ceiling.
func IndexFor(concentration float64, breakpoints [6]float64) int {
	if concentration <= 0 {
		return 0
	}
	for i, high := range breakpoints {
		if concentration > high {
			continue
		}
		low := 0.0
		if i > 0 {
			low = breakpoints[i-1]
		}
		iLow := float64(aqi.IndexScale[i])
		iHigh := float64(aqi.IndexScale[i+1])
		return int(math.Round((iHigh-iLow)/(high-low)*(concentration-low) + iLow))
	}
	return aqi.MaxIndex
}

// resolveColumns maps each canonical pollutant to the first raw column
// (in sorted column order) that aliases onto it.
func resolveColumns(table *series.Table) map[string]string {
	out := make(map[string]string)
	for _, column := range table.ColumnNames() {
		canonical := aqi.CanonicalPollutant(column)
		if canonical == "" {
			continue
		}
		if _, taken := out[canonical]; taken {
			continue
		}
		out[canonical] = column
	}
	return out
}
