package ports

import (
	"context"

	"airlens/domain/analysis"
	"airlens/domain/core"
)

// RunFilters narrows run listings.
type RunFilters struct {
	Pollutant string
	Limit     int
	Offset    int
}

// RunSummary is the listing view of a stored analysis run.
type RunSummary struct {
	ID              core.RunID     `json:"id"`
	CreatedAt       core.Timestamp `json:"created_at"`
	TargetPollutant string         `json:"target_pollutant"`
	OverallAQI      int            `json:"overall_aqi,omitempty"`
}

// RunRepository persists completed analysis runs.
type RunRepository interface {
	// Save stores a run; saving the same ID twice replaces the payload.
	Save(ctx context.Context, run *analysis.AnalysisRun) error

	// Get retrieves one run by ID.
	Get(ctx context.Context, id core.RunID) (*analysis.AnalysisRun, error)

	// List returns run summaries, newest first.
	List(ctx context.Context, filters RunFilters) ([]RunSummary, error)
}
