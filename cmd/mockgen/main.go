package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"lumator/cmd/mockgen/engine"
	"lumator/internal/pipeline"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./.seed", "Output directory for the seed script")
	warehouse := flag.String("warehouse", "XTRA", "Warehouse id")
	history := flag.Int("history", 21, "Days of shipment history to generate")
	days := flag.Int("days", 3, "Days of forecast and simulator output to generate")
	volume := flag.Int("volume", 200, "Base packages per day")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	now := time.Now()
	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Warehouse:    *warehouse,
		LegalEntity:  141,
		HistoryDays:  *history,
		ForecastDays: *days,
		BaseVolume:   *volume,
		Title:        pipeline.DefaultTitle(now),
		Seed:         *seed,
		Now:          now,
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, History: %d days) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.HistoryDays, *outDir)

	ds := engine.Generate(cfg)
	path, err := engine.Save(*outDir, fmt.Sprintf("seed_%s_%s", cfg.Scenario, cfg.Distribution), cfg, ds)
	if err != nil {
		fmt.Printf("Failed to save seed data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d shipments, %d forecast rows, %d output rows in %s\n", len(ds.Shipments), len(ds.Forecast), len(ds.Output), path)
}
