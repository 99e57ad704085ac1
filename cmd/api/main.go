package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"labcommerce/internal/auth"
	"labcommerce/internal/config"
	"labcommerce/internal/db"
	"labcommerce/internal/events"
	"labcommerce/internal/httpserver"
	"labcommerce/internal/logging"
	catalogrepo "labcommerce/internal/repository/catalog"
	orderrepo "labcommerce/internal/repository/order"
	resultrepo "labcommerce/internal/repository/result"
	reviewrepo "labcommerce/internal/repository/review"
	catalogsvc "labcommerce/internal/service/catalog"
	ordersvc "labcommerce/internal/service/order"
	resultsvc "labcommerce/internal/service/result"
	reviewsvc "labcommerce/internal/service/review"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDev()).With().Str("component", "api").Logger()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	if cfg.DevAuth() {
		logger.Warn().Msg("AUTH_DEV_MODE: requests without a token act as dev-user with admin role")
	}

	publisher := events.Nop()
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPublishTimeout(), logger)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing domain events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("close event publisher")
		}
	}()

	catalogRepo := catalogrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	resultRepo := resultrepo.NewPostgres(dbpool, logger)
	reviewRepo := reviewrepo.NewPostgres(dbpool, logger)

	deps := httpserver.Deps{
		Catalog: catalogsvc.New(catalogRepo),
		Orders:  ordersvc.New(orderRepo, catalogRepo, publisher, logger),
		Results: resultsvc.New(resultRepo, orderRepo, publisher, logger),
		Reviews: reviewsvc.New(reviewRepo, resultRepo, publisher, logger),
	}

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, deps, httpserver.Options{
		CORSOrigins: cfg.CORSOrigins,
		Auth: auth.Config{
			SigningKey: []byte(cfg.AuthSigningKey),
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			Dev:        cfg.DevAuth(),
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("server stopped")
	}
}
