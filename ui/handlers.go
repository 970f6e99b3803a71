package ui

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"airlens/domain/core"
	"airlens/domain/series"
	"airlens/internal/analysis/engine"
	"airlens/internal/analysis/forecast"
	"airlens/internal/analysis/outlier"
	"airlens/internal/analysis/seasonal"
	"airlens/internal/analysis/trend"
	"airlens/internal/errors"
	"airlens/ports"
)

// analyzeRequest is the body of POST /api/analyze. All fields are
// optional; omitted ones fall back to engine defaults.
type analyzeRequest struct {
	Pollutant          string `json:"pollutant"`
	OutlierMethod      string `json:"outlier_method"`
	OutlierSensitivity string `json:"outlier_sensitivity"`
	TrendMethod        string `json:"trend_method"`
	ForecastHorizon    int    `json:"forecast_horizon"`
	SeasonalPeriod     string `json:"seasonal_period"`
}

type loadRequest struct {
	FilePath string `json:"file_path"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleDatasetLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("invalid JSON body"))
		return
	}
	if req.FilePath == "" {
		writeError(w, errors.InvalidInput("file_path is required"))
		return
	}

	table, ingest, err := a.reader.Read(r.Context(), req.FilePath)
	if err != nil {
		writeError(w, err)
		return
	}
	a.SetTable(table, ingest)
	a.logger.Info("loaded dataset %s: %d rows, %d columns", req.FilePath, table.RowCount(), len(table.Columns))
	writeJSON(w, http.StatusOK, ingest)
}

func (a *App) handleDatasetInfo(w http.ResponseWriter, r *http.Request) {
	table, ingest := a.currentTable()
	if table == nil {
		writeError(w, errors.NotFound("dataset"))
		return
	}
	first, last := table.Period()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":         table.RowCount(),
		"columns":      table.ColumnNames(),
		"period_start": first,
		"period_end":   last,
		"regions":      engine.Regions(table),
		"ingest":       ingest,
	})
}

func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	table, _ := a.currentTable()
	if table == nil {
		writeError(w, errors.NotFound("dataset"))
		return
	}

	var req analyzeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.InvalidInput("invalid JSON body"))
			return
		}
	}

	opts := a.defaultOptions()
	opts.ForecastMethod = forecast.MethodHybrid
	if req.Pollutant != "" {
		opts.Pollutant = req.Pollutant
	}
	if req.OutlierMethod != "" {
		opts.OutlierMethod = outlier.Method(req.OutlierMethod)
	}
	if req.OutlierSensitivity != "" {
		opts.OutlierSensitivity = outlier.Sensitivity(req.OutlierSensitivity)
	}
	if req.TrendMethod != "" {
		opts.TrendMethod = trend.Method(req.TrendMethod)
	}
	if req.ForecastHorizon > 0 {
		opts.ForecastHorizon = req.ForecastHorizon
	}
	if req.SeasonalPeriod != "" {
		opts.SeasonalPeriod = seasonal.Period(req.SeasonalPeriod)
	}

	run, err := a.engine.Run(r.Context(), table, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.runs.Save(r.Context(), run); err != nil {
		a.logger.Error("failed to persist run %s: %v", run.ID.String(), err)
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters := ports.RunFilters{
		Pollutant: r.URL.Query().Get("pollutant"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}
	summaries, err := a.runs.List(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  summaries,
		"count": len(summaries),
	})
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	run, err := a.runs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	run, err := a.runs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(a.reports.HTML(run))
}

func (a *App) handleListRegions(w http.ResponseWriter, r *http.Request) {
	table, _ := a.currentTable()
	if table == nil {
		writeError(w, errors.NotFound("dataset"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"region_column": engine.RegionColumn(table),
		"regions":       engine.Regions(table),
	})
}

func (a *App) handleCompareRegions(w http.ResponseWriter, r *http.Request) {
	table, _ := a.currentTable()
	if table == nil {
		writeError(w, errors.NotFound("dataset"))
		return
	}
	pollutant := requiredPollutant(table, r)
	comparison, err := engine.CompareRegions(table, nil, pollutant, r.URL.Query().Get("metric"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (a *App) handleRegionalTrends(w http.ResponseWriter, r *http.Request) {
	table, _ := a.currentTable()
	if table == nil {
		writeError(w, errors.NotFound("dataset"))
		return
	}
	pollutant := requiredPollutant(table, r)
	trends, err := a.engine.TrendByRegion(table, nil, pollutant, r.URL.Query().Get("method"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (a *App) handleRegionalForecasts(w http.ResponseWriter, r *http.Request) {
	table, _ := a.currentTable()
	if table == nil {
		writeError(w, errors.NotFound("dataset"))
		return
	}
	pollutant := requiredPollutant(table, r)
	forecasts, err := a.engine.ForecastByRegion(r.Context(), table, nil, pollutant, queryInt(r, "horizon", 24))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forecasts)
}

// requiredPollutant resolves the pollutant query parameter, falling back
// to auto-selection over the loaded table.
func requiredPollutant(table *series.Table, r *http.Request) string {
	if p := r.URL.Query().Get("pollutant"); p != "" {
		return p
	}
	return engine.SelectTargetPollutant(table)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps application error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeColumnNotFound, errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeConfigInvalid:
		status = http.StatusBadRequest
	case errors.CodeInsufficientData, errors.CodeNoData, errors.CodeIngestError:
		status = http.StatusUnprocessableEntity
	case errors.CodeForecastFailed:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
