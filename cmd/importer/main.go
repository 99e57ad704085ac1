package main

import (
	"context"
	"flag"
	"os"
	"time"

	"labcommerce/internal/config"
	"labcommerce/internal/db"
	"labcommerce/internal/importer"
	"labcommerce/internal/logging"
	"labcommerce/internal/repository/catalog"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to lab-test catalog CSV")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDev()).With().Str("component", "importer").Logger()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	start := time.Now()
	count, err := importer.NewCSVImporter(f, catalog.NewPostgres(pool, logger)).Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Int("imported", count).Msg("import failed")
	}
	logger.Info().Int("items", count).Str("file", filePath).Dur("took", time.Since(start).Truncate(time.Millisecond)).Msg("catalog imported")
}
