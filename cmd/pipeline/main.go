// Command pipeline cleans a weather CSV, writes train/test splits and renders
// summary plots into an output directory.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/dataset"
	"github.com/kjstillabower/weatherlog/internal/observability"
)

func main() {
	logger, err := observability.NewLogger("pipeline")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	var opts dataset.Options
	flag.StringVar(&opts.Input, "in", "GlobalWeatherRepository.csv", "input CSV")
	flag.StringVar(&opts.OutDir, "out", "output", "directory for cleaned data, splits and plots")
	flag.StringVar(&opts.Target, "target", "temperature", "target column; falls back to temperature_celsius")
	flag.Float64Var(&opts.TestSize, "test-size", 0.2, "fraction of rows held out for test")
	flag.Int64Var(&opts.Seed, "seed", 42, "shuffle seed")
	flag.Float64Var(&opts.Z, "z", 3, "z-score threshold for outlier removal")
	flag.BoolVar(&opts.Plots, "plots", true, "render PNG plots")
	flag.Parse()

	res, err := dataset.Run(opts, logger)
	if err != nil {
		return err
	}
	logger.Info("pipeline complete",
		zap.Int("rows", res.Rows),
		zap.Int("dropped", res.Dropped),
		zap.Int("train", res.Train),
		zap.Int("test", res.Test),
		zap.Strings("files", res.Files))
	return nil
}
