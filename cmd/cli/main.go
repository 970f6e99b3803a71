package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"airlens/adapters/ingest"
	"airlens/adapters/report"
	"airlens/internal/analysis/engine"
	"airlens/internal/analysis/forecast"
	"airlens/internal/analysis/outlier"
	"airlens/internal/analysis/seasonal"
	"airlens/internal/analysis/trend"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "airlens-cli",
		Short: "Air quality analysis over pollution measurement files",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newForecastCmd(),
		newAQICmd(),
		newRegionsCmd(),
		newReportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var pollutant, method, sensitivity, period string
	var horizon int

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Run the complete analysis pipeline over a measurement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := ingest.NewReader()
			table, _, err := reader.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			run, err := engine.New().Run(cmd.Context(), table, engine.Options{
				Pollutant:          pollutant,
				OutlierMethod:      outlier.Method(method),
				OutlierSensitivity: outlier.Sensitivity(sensitivity),
				TrendMethod:        trend.MethodComposite,
				ForecastHorizon:    horizon,
				ForecastMethod:     forecast.MethodHybrid,
				SeasonalPeriod:     seasonal.Period(period),
			})
			if err != nil {
				return err
			}
			return printJSON(run)
		},
	}

	cmd.Flags().StringVar(&pollutant, "pollutant", "", "target pollutant column (auto-selected when empty)")
	cmd.Flags().StringVar(&method, "outlier-method", "mad", "outlier method: mad, iqr, zscore")
	cmd.Flags().StringVar(&sensitivity, "sensitivity", "auto", "outlier sensitivity: low, medium, high, auto")
	cmd.Flags().StringVar(&period, "seasonal-period", "daily", "seasonal period: daily, weekly, monthly")
	cmd.Flags().IntVar(&horizon, "horizon", 24, "forecast horizon in hours")
	return cmd
}

func newForecastCmd() *cobra.Command {
	var pollutant string
	var horizon int

	cmd := &cobra.Command{
		Use:   "forecast [file]",
		Short: "Forecast future concentrations for one pollutant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := ingest.NewReader()
			table, _, err := reader.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pollutant == "" {
				pollutant = engine.SelectTargetPollutant(table)
			}

			run, err := engine.New().Run(cmd.Context(), table, engine.Options{
				Pollutant:       pollutant,
				ForecastHorizon: horizon,
			})
			if err != nil {
				return err
			}
			if run.Forecast == nil {
				return fmt.Errorf("forecast failed: %s", run.ForecastError)
			}
			return printJSON(run.Forecast)
		},
	}

	cmd.Flags().StringVar(&pollutant, "pollutant", "", "target pollutant column")
	cmd.Flags().IntVar(&horizon, "horizon", 24, "forecast horizon in hours")
	return cmd
}

func newAQICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aqi [file]",
		Short: "Compute air quality index from a measurement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := ingest.NewReader()
			table, _, err := reader.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			run, err := engine.New().Run(cmd.Context(), table, engine.Options{})
			if err != nil {
				return err
			}
			return printJSON(run.AQI)
		},
	}
}

func newRegionsCmd() *cobra.Command {
	var pollutant, metric string

	cmd := &cobra.Command{
		Use:   "regions [file]",
		Short: "Compare pollution levels across regions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := ingest.NewReader()
			table, _, err := reader.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pollutant == "" {
				pollutant = engine.SelectTargetPollutant(table)
			}

			comparison, err := engine.CompareRegions(table, nil, pollutant, metric)
			if err != nil {
				return err
			}
			return printJSON(comparison)
		},
	}

	cmd.Flags().StringVar(&pollutant, "pollutant", "", "pollutant column to compare")
	cmd.Flags().StringVar(&metric, "metric", "mean", "comparison metric: mean, median, max")
	return cmd
}

func newReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Run the full analysis and write an HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := ingest.NewReader()
			table, _, err := reader.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			run, err := engine.New().Run(cmd.Context(), table, engine.Options{})
			if err != nil {
				return err
			}

			renderer := report.NewRenderer()
			if out == "" {
				fmt.Println(renderer.Markdown(run))
				return nil
			}
			if err := os.WriteFile(out, renderer.HTML(run), 0o644); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output HTML file (prints markdown to stdout when empty)")
	return cmd
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
