package correlation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"airlens/domain/analysis"
	"airlens/domain/series"
	"airlens/internal/errors"
)

// topPairCount is how many ranked relationships the result carries.
const topPairCount = 5

// minPaired is the smallest overlap two columns need for a coefficient.
const minPaired = 3

// Analyzer computes pairwise Pearson relationships across pollutants.
type Analyzer struct{}

// NewAnalyzer creates a correlation analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze builds the correlation matrix over the requested pollutants
// (those actually present in the table) and ranks the strongest pairs by
// absolute coefficient.
func (a *Analyzer) Analyze(table *series.Table, pollutants []string) (*analysis.CorrelationResult, error) {
	available := make([]string, 0, len(pollutants))
	for _, p := range pollutants {
		if table.HasColumn(p) {
			available = append(available, p)
		}
	}
	if len(available) < 2 {
		return nil, errors.InsufficientData("correlation analysis", len(available), 2)
	}

	matrix := make(map[string]map[string]float64, len(available))
	for _, p := range available {
		matrix[p] = map[string]float64{p: 1}
	}

	pairs := make([]analysis.CorrelationPair, 0, len(available)*(len(available)-1)/2)
	for i := 0; i < len(available); i++ {
		for j := i + 1; j < len(available); j++ {
			xs, ys := table.PairedValues(available[i], available[j])
			r := 0.0
			if len(xs) >= minPaired {
				r = stat.Correlation(xs, ys, nil)
				if math.IsNaN(r) {
					r = 0
				}
			}
			matrix[available[i]][available[j]] = r
			matrix[available[j]][available[i]] = r

			pairs = append(pairs, analysis.CorrelationPair{
				PollutantA:  available[i],
				PollutantB:  available[j],
				Coefficient: r,
				Strength:    strengthLabel(r),
				SampleSize:  len(xs),
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Coefficient) > math.Abs(pairs[j].Coefficient)
	})
	if len(pairs) > topPairCount {
		pairs = pairs[:topPairCount]
	}

	return &analysis.CorrelationResult{
		Pollutants: available,
		Matrix:     matrix,
		TopPairs:   pairs,
	}, nil
}

// strengthLabel converts a coefficient into its qualitative band.
func strengthLabel(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= 0.8:
		return "very strong"
	case abs >= 0.6:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	case abs >= 0.2:
		return "weak"
	default:
		return "very weak"
	}
}
