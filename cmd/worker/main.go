package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"caku/internal/clients/pricewatch"
	"caku/internal/config"
	"caku/internal/database"
	"caku/internal/log"
	"caku/internal/metrics"
	"caku/internal/queue"
	"caku/internal/repository"
	"caku/internal/service"
	"caku/internal/tasks"
	"caku/internal/transport/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	if cfg.PriceWatch.SerperAPIKey == "" {
		logger.Error().Msg("pricewatch.serperapikey is required for the worker")
		os.Exit(1)
	}
	wishlist := service.NewWishlistService(
		repository.NewWishlistRepository(pool),
		pricewatch.New(cfg.PriceWatch),
		logger,
	)

	notifier, err := telegram.New(cfg.Telegram, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	processor := tasks.NewProcessor(wishlist, notifier, metrics.New(registry), logger)

	var metricsServer *metrics.Server
	if cfg.Worker.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.Worker.MetricsAddr, registry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Str("addr", cfg.Worker.MetricsAddr).Msg("metrics server failed")
			}
		}()
	}

	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Jobs.ClaimInterval,
		logger,
		processor,
	)

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}
	time.Sleep(500 * time.Millisecond)
}
