package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OldStager01/workforce-ml/internal/logger"
	"github.com/OldStager01/workforce-ml/internal/simulator"
	"github.com/OldStager01/workforce-ml/pkg/jsonfile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run writes every synthetic dataset as <out>/<name>.json, one array of
// row objects per file.
func run() error {
	out := flag.String("out", "datasets", "output directory")
	employees := flag.Int("employees", 400, "number of simulated employees")
	seed := flag.Int64("seed", 42, "random seed")
	pattern := flag.String("pattern", "weekly", "absence pattern: steady, weekly, seasonal, weekly_seasonal")
	today := flag.String("today", "", "anchor date (YYYY-MM-DD), default today")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")

	cfg := simulator.Config{
		Employees: *employees,
		Seed:      *seed,
		Pattern:   simulator.ParsePattern(*pattern),
	}
	if *today != "" {
		t, err := time.Parse("2006-01-02", *today)
		if err != nil {
			return fmt.Errorf("invalid -today: %w", err)
		}
		cfg.Today = t
	}

	sim := simulator.New(cfg)
	for _, name := range sim.Datasets() {
		f, err := sim.Dataset(name)
		if err != nil {
			return err
		}
		path := filepath.Join(*out, name+".json")
		if err := jsonfile.Write(path, f.Rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		logger.Infof("Wrote %d rows to %s", f.Len(), path)
	}
	return nil
}
