package ui

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"airlens/adapters/report"
	"airlens/domain/series"
	"airlens/internal"
	"airlens/internal/analysis/engine"
	"airlens/ports"
)

// App is the HTTP surface over the analysis engine. It holds one loaded
// measurement table at a time; analyses run against it and persist into
// the run repository.
type App struct {
	router  *chi.Mux
	engine  *engine.Engine
	runs    ports.RunRepository
	reader  ports.DatasetReader
	reports *report.Renderer
	logger  *internal.Logger

	mu       sync.RWMutex
	table    *series.Table
	ingest   *ports.IngestReport
	defaults engine.Options
}

// Config holds HTTP application configuration.
type Config struct {
	Port string
}

// NewApp wires the application with its dependencies.
func NewApp(eng *engine.Engine, runs ports.RunRepository, reader ports.DatasetReader) *App {
	app := &App{
		router:  chi.NewRouter(),
		engine:  eng,
		runs:    runs,
		reader:  reader,
		reports: report.NewRenderer(),
		logger:  internal.DefaultLogger,
	}

	app.setupMiddleware()
	app.setupRoutes()
	return app
}

// SetDefaultOptions installs the configured analysis defaults. Request
// fields still override them per call.
func (a *App) SetDefaultOptions(opts engine.Options) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaults = opts
}

func (a *App) defaultOptions() engine.Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.defaults
}

// SetTable installs a pre-loaded measurement table, typically at startup
// from the configured data file.
func (a *App) SetTable(table *series.Table, ingest *ports.IngestReport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.table = table
	a.ingest = ingest
}

func (a *App) currentTable() (*series.Table, *ports.IngestReport) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.table, a.ingest
}

// setupMiddleware configures HTTP middleware.
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes.
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	// Dataset endpoints
	a.router.Post("/api/datasets/load", a.handleDatasetLoad)
	a.router.Get("/api/datasets/info", a.handleDatasetInfo)

	// Analysis endpoints
	a.router.Post("/api/analyze", a.handleAnalyze)
	a.router.Get("/api/runs", a.handleListRuns)
	a.router.Get("/api/runs/{id}", a.handleGetRun)
	a.router.Get("/api/runs/{id}/report", a.handleRunReport)

	// Regional endpoints
	a.router.Get("/api/regions", a.handleListRegions)
	a.router.Get("/api/regions/compare", a.handleCompareRegions)
	a.router.Get("/api/regions/trends", a.handleRegionalTrends)
	a.router.Get("/api/regions/forecasts", a.handleRegionalForecasts)
}

// Start starts the HTTP server.
func (a *App) Start(config Config) error {
	addr := ":" + config.Port
	a.logger.Info("starting airlens API on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}
