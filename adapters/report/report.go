package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"airlens/domain/analysis"
)

// Renderer turns a completed analysis run into a human-readable report.
// The canonical format is markdown; HTML is derived from it.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Markdown builds the full report document for one run.
func (r *Renderer) Markdown(run *analysis.AnalysisRun) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Air Quality Analysis Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", run.ID.String())
	fmt.Fprintf(&b, "- Generated: %s\n", run.CreatedAt.String())
	fmt.Fprintf(&b, "- Target pollutant: **%s**\n\n", run.TargetPollutant)

	r.writeAQI(&b, run)
	r.writeCleaning(&b, run)
	r.writeTrend(&b, run)
	r.writeForecast(&b, run)
	r.writeSeasonal(&b, run)
	r.writeCorrelations(&b, run)
	r.writeYearly(&b, run)

	return b.String()
}

// HTML renders the markdown report to an HTML fragment.
func (r *Renderer) HTML(run *analysis.AnalysisRun) []byte {
	md := []byte(r.Markdown(run))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	doc := p.Parse(md)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

func (r *Renderer) writeAQI(b *strings.Builder, run *analysis.AnalysisRun) {
	fmt.Fprintf(b, "## Air Quality Index\n\n")
	if run.AQI.Empty() {
		fmt.Fprintf(b, "No pollutant had usable data for an index.\n\n")
		return
	}
	if run.AQI.Overall != nil {
		fmt.Fprintf(b, "Overall AQI **%d** (%s), dominated by %s.\n\n",
			run.AQI.Overall.Index, run.AQI.Overall.Category, run.AQI.Overall.DominantPollutant)
	}
	fmt.Fprintf(b, "| Pollutant | Concentration | AQI | Category |\n")
	fmt.Fprintf(b, "|---|---|---|---|\n")
	for _, record := range run.AQI.Pollutants {
		fmt.Fprintf(b, "| %s | %.1f %s | %d | %s |\n",
			record.Pollutant, record.Concentration, record.Unit, record.Index, record.Category)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) writeCleaning(b *strings.Builder, run *analysis.AnalysisRun) {
	if run.Cleaning == nil {
		return
	}
	fmt.Fprintf(b, "## Data Cleaning\n\n")
	fmt.Fprintf(b, "Method `%s` flagged %d readings (%.2f%%) as anomalous.\n\n",
		run.Cleaning.Method, run.Cleaning.AnomaliesDetected, run.Cleaning.AnomalyPercentage)
}

func (r *Renderer) writeTrend(b *strings.Builder, run *analysis.AnalysisRun) {
	fmt.Fprintf(b, "## Trend\n\n")
	if run.Trend == nil {
		fmt.Fprintf(b, "Trend analysis unavailable: %s\n\n", orUnknown(run.TrendError))
		return
	}
	fmt.Fprintf(b, "Overall direction **%s** with a %.1f%% change over %d data points.\n",
		run.Trend.Direction, run.Trend.ChangePercentage, run.Trend.DataPoints)
	if run.Trend.Linear != nil {
		fmt.Fprintf(b, "Linear fit: slope %.4g, R² %.3f.\n", run.Trend.Linear.Slope, run.Trend.Linear.RSquared)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) writeForecast(b *strings.Builder, run *analysis.AnalysisRun) {
	fmt.Fprintf(b, "## Forecast\n\n")
	if run.Forecast == nil {
		fmt.Fprintf(b, "Forecast unavailable: %s\n\n", orUnknown(run.ForecastError))
		return
	}
	fmt.Fprintf(b, "Next %d hours via `%s`: mean %.1f, range %.1f to %.1f.\n\n",
		run.Forecast.Horizon, run.Forecast.MethodUsed,
		run.Forecast.Stats.Mean, run.Forecast.Stats.Min, run.Forecast.Stats.Max)
}

func (r *Renderer) writeSeasonal(b *strings.Builder, run *analysis.AnalysisRun) {
	fmt.Fprintf(b, "## Seasonal Patterns\n\n")
	if run.Seasonal == nil {
		fmt.Fprintf(b, "Seasonal analysis unavailable: %s\n\n", orUnknown(run.SeasonalError))
		return
	}
	if run.Seasonal.Peak != nil {
		fmt.Fprintf(b, "Concentrations peak at hour %02d:00 (mean %.1f).\n",
			run.Seasonal.Peak.Hour, run.Seasonal.Peak.Concentration)
	}
	if sig := run.Seasonal.Significance; sig != nil {
		verdict := "not statistically significant"
		if sig.Significant {
			verdict = "statistically significant"
		}
		fmt.Fprintf(b, "Hourly pattern is %s (F=%.2f, p=%.4f).\n", verdict, sig.FStatistic, sig.PValue)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) writeCorrelations(b *strings.Builder, run *analysis.AnalysisRun) {
	fmt.Fprintf(b, "## Pollutant Correlations\n\n")
	if run.Correlations == nil {
		fmt.Fprintf(b, "Correlation analysis unavailable: %s\n\n", orUnknown(run.CorrelationError))
		return
	}
	for _, pair := range run.Correlations.TopPairs {
		fmt.Fprintf(b, "- %s and %s: r=%.2f (%s, n=%d)\n",
			pair.PollutantA, pair.PollutantB, pair.Coefficient, pair.Strength, pair.SampleSize)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) writeYearly(b *strings.Builder, run *analysis.AnalysisRun) {
	if run.Yearly == nil {
		return
	}
	fmt.Fprintf(b, "## Long-Run Movement\n\n")
	fmt.Fprintf(b, "Yearly averages moved **%s** by %.1f%% over %s (%d years).\n\n",
		run.Yearly.Direction, run.Yearly.ChangePercentage, run.Yearly.Period, run.Yearly.YearsAnalyzed)
}

func orUnknown(msg string) string {
	if msg == "" {
		return "no result recorded"
	}
	return msg
}
