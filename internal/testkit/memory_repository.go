package testkit

import (
	"context"
	"sort"
	"sync"

	"airlens/domain/analysis"
	"airlens/domain/core"
	"airlens/internal/errors"
	"airlens/ports"
)

// InMemoryRunRepository implements RunRepository with map storage. Used
// by tests and as the fallback store when no database is configured.
type InMemoryRunRepository struct {
	runs map[core.RunID]*analysis.AnalysisRun
	mu   sync.RWMutex
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs: make(map[core.RunID]*analysis.AnalysisRun),
	}
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func (r *InMemoryRunRepository) Save(ctx context.Context, run *analysis.AnalysisRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *InMemoryRunRepository) Get(ctx context.Context, id core.RunID) (*analysis.AnalysisRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, errors.NotFound("analysis run " + id.String())
	}
	return run, nil
}

func (r *InMemoryRunRepository) List(ctx context.Context, filters ports.RunFilters) ([]ports.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := []ports.RunSummary{}
	for _, run := range r.runs {
		if filters.Pollutant != "" && run.TargetPollutant != filters.Pollutant {
			continue
		}
		summary := ports.RunSummary{
			ID:              run.ID,
			CreatedAt:       run.CreatedAt,
			TargetPollutant: run.TargetPollutant,
		}
		if run.AQI != nil && run.AQI.Overall != nil {
			summary.OverallAQI = run.AQI.Overall.Index
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[j].CreatedAt.Before(summaries[i].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(summaries) {
			return []ports.RunSummary{}, nil
		}
		summaries = summaries[filters.Offset:]
	}
	if filters.Limit > 0 && len(summaries) > filters.Limit {
		summaries = summaries[:filters.Limit]
	}
	return summaries, nil
}
