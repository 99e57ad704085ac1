package main

import (
	"context"

	"labcommerce/internal/config"
	"labcommerce/internal/db"
	"labcommerce/internal/logging"
	"labcommerce/internal/repository/catalog"
	"labcommerce/internal/seed"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDev()).With().Str("component", "seed").Logger()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if err := seed.Apply(ctx, catalog.NewPostgres(pool, logger), logger); err != nil {
		logger.Fatal().Err(err).Msg("seed apply")
	}
}
