package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"airlens/domain/analysis"
	"airlens/domain/core"
	"airlens/internal/errors"
	"airlens/ports"
)

// schema holds the analysis run storage DDL. Runs are stored as JSONB
// payloads with a few promoted columns for listing and filtering.
const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	target_pollutant TEXT NOT NULL,
	overall_aqi INT,
	payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_pollutant ON analysis_runs (target_pollutant);
`

// Connect opens a PostgreSQL connection pool and verifies it.
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return db, nil
}

// RunRepositoryImpl implements RunRepository for PostgreSQL.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a PostgreSQL run repository and ensures the
// schema exists.
func NewRunRepository(db *sqlx.DB) (ports.RunRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to ensure analysis_runs schema")
	}
	return &RunRepositoryImpl{db: db}, nil
}

// Save stores a run, replacing any previous payload under the same ID.
func (r *RunRepositoryImpl) Save(ctx context.Context, run *analysis.AnalysisRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to encode run payload")
	}

	var overallAQI sql.NullInt64
	if run.AQI != nil && run.AQI.Overall != nil {
		overallAQI = sql.NullInt64{Int64: int64(run.AQI.Overall.Index), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, created_at, target_pollutant, overall_aqi, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET created_at = EXCLUDED.created_at,
		    target_pollutant = EXCLUDED.target_pollutant,
		    overall_aqi = EXCLUDED.overall_aqi,
		    payload = EXCLUDED.payload
	`, run.ID.String(), run.CreatedAt.Time(), run.TargetPollutant, overallAQI, payload)
	if err != nil {
		return errors.Wrap(err, "failed to save analysis run")
	}
	return nil
}

// Get retrieves one run by ID.
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*analysis.AnalysisRun, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT payload FROM analysis_runs WHERE id = $1
	`, id.String())
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("analysis run " + id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis run")
	}

	var run analysis.AnalysisRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, errors.Wrap(err, "failed to decode run payload")
	}
	return &run, nil
}

// List returns run summaries newest first, optionally filtered by
// target pollutant.
func (r *RunRepositoryImpl) List(ctx context.Context, filters ports.RunFilters) ([]ports.RunSummary, error) {
	query := `
		SELECT id, created_at, target_pollutant, overall_aqi
		FROM analysis_runs
	`
	args := []interface{}{}
	if filters.Pollutant != "" {
		query += " WHERE target_pollutant = $1"
		args = append(args, filters.Pollutant)
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list analysis runs")
	}
	defer rows.Close()

	summaries := []ports.RunSummary{}
	for rows.Next() {
		var (
			id         string
			createdAt  sql.NullTime
			pollutant  string
			overallAQI sql.NullInt64
		)
		if err := rows.Scan(&id, &createdAt, &pollutant, &overallAQI); err != nil {
			return nil, errors.Wrap(err, "failed to scan run summary")
		}
		summary := ports.RunSummary{
			ID:              core.RunID(id),
			TargetPollutant: pollutant,
		}
		if createdAt.Valid {
			summary.CreatedAt = core.NewTimestamp(createdAt.Time)
		}
		if overallAQI.Valid {
			summary.OverallAQI = int(overallAQI.Int64)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
