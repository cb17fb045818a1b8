// Command importcsv loads a weather CSV into the history table as ownerless entries.
// Run from the project root so config/{ENV_NAME}.yaml is found.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/config"
	"github.com/kjstillabower/weatherlog/internal/dataset"
	"github.com/kjstillabower/weatherlog/internal/db"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/repository"
	"github.com/kjstillabower/weatherlog/internal/service"
)

func main() {
	logger, err := observability.NewLogger("importcsv")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Error("import failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	csvPath := flag.String("csv", "GlobalWeatherRepository.csv", "path to the weather CSV")
	batchSize := flag.Int("batch", 500, "rows per insert batch")
	flag.Parse()

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	gdb, err := db.Open(dbCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("database close", zap.Error(err))
		}
	}()
	if err := repository.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, stats, err := dataset.ReadEntries(f, time.Now())
	if err != nil {
		return fmt.Errorf("parse %s: %w", *csvPath, err)
	}
	logger.Info("csv parsed",
		zap.String("path", *csvPath),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped),
		zap.Int("default_timestamps", stats.DefaultTimes))

	history := service.NewHistoryService(repository.NewWeatherRepository(gdb), nil)
	inserted, err := history.Import(context.Background(), entries, *batchSize)
	if err != nil {
		return err
	}
	logger.Info("import complete", zap.Int("inserted", inserted), zap.String("driver", dbCfg.Driver))
	return nil
}
