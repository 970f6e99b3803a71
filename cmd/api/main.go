package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"airlens/adapters/ingest"
	"airlens/adapters/postgres"
	"airlens/internal"
	"airlens/internal/analysis/engine"
	"airlens/internal/analysis/outlier"
	"airlens/internal/config"
	"airlens/internal/testkit"
	"airlens/ports"
	"airlens/ui"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Configuration error: ", err)
	}
	logger := internal.DefaultLogger

	var runs ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatal("Database connection failed: ", err)
		}
		defer db.Close()
		runs, err = postgres.NewRunRepository(db)
		if err != nil {
			log.Fatal("Run repository setup failed: ", err)
		}
		logger.Info("persisting runs to PostgreSQL")
	} else {
		runs = testkit.NewInMemoryRunRepository()
		logger.Warn("DATABASE_URL not set, keeping runs in memory")
	}

	reader := ingest.NewReader()
	app := ui.NewApp(engine.New(), runs, reader)
	app.SetDefaultOptions(engine.Options{
		OutlierMethod:      outlier.Method(cfg.Engine.OutlierMethod),
		OutlierSensitivity: outlier.Sensitivity(cfg.Engine.OutlierSensitivity),
		ForecastHorizon:    cfg.Engine.ForecastHorizon,
	})

	if cfg.Data.FilePath != "" {
		table, ingestReport, err := reader.Read(context.Background(), cfg.Data.FilePath)
		if err != nil {
			log.Fatal("Failed to load data file: ", err)
		}
		app.SetTable(table, ingestReport)
		logger.Info("loaded %s: %d rows", cfg.Data.FilePath, table.RowCount())
	}

	if err := app.Start(ui.Config{Port: cfg.Server.Port}); err != nil {
		log.Fatal("Server failed: ", err)
	}
}
