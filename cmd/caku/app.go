package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"caku/internal/clients/llm"
	"caku/internal/clients/pricewatch"
	"caku/internal/config"
	"caku/internal/database"
	"caku/internal/metrics"
	"caku/internal/repository"
	"caku/internal/security"
	"caku/internal/service"
	"caku/internal/session"
	"caku/internal/storage"
)

// app holds the connections and services shared by every subcommand.
type app struct {
	cfg      *config.AppConfig
	log      zerolog.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	auth     *service.AuthService
	ledger   *service.LedgerService
	vault    *service.VaultService
	wishlist *service.WishlistService
	coach    *service.CoachService
}

func newApp(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*app, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	a := &app{cfg: cfg, log: log, pool: pool}

	a.redis, err = database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		if cfg.Vault.SessionBackend == "redis" {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Warn().Err(err).Msg("redis unavailable, using in-process sessions and jobs")
		a.redis = nil
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	a.auth = service.NewAuthService(repository.NewTokenRepository(pool), cfg.Bot.Admins, log)
	a.ledger = service.NewLedgerService(
		repository.NewTransactionRepository(pool),
		repository.NewSettingsRepository(pool),
		cfg.Bot.Location(),
		log,
	)

	vault, err := a.newVault(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.vault = vault

	var prices service.PriceLookup
	if cfg.PriceWatch.SerperAPIKey != "" {
		prices = pricewatch.New(cfg.PriceWatch)
	}
	a.wishlist = service.NewWishlistService(repository.NewWishlistRepository(pool), prices, log)

	if cfg.LLM.APIKey != "" {
		a.coach = service.NewCoachService(llm.New(cfg.LLM), log)
	}
	return a, nil
}

func (a *app) newVault(ctx context.Context) (*service.VaultService, error) {
	cfg := a.cfg.Vault
	if cfg.Secret == "" {
		return nil, fmt.Errorf("vault.secret is required")
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.SessionBackend == "redis" && a.redis != nil {
		sessions = session.NewRedisStore(a.redis, 2*cfg.Timeout)
	}

	var objects service.ObjectStore
	if a.cfg.Storage.Endpoint != "" {
		store, err := storage.NewObjectStore(a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			a.log.Warn().Err(err).Msg("ensure vault bucket failed")
		}
		objects = store
	}

	return service.NewVaultService(
		repository.NewVaultRepository(a.pool),
		sessions,
		security.NewPinCipher(cfg.Secret),
		objects,
		service.VaultConfig{Timeout: cfg.Timeout, LocalDir: cfg.LocalDir, MaxUploadBytes: cfg.MaxUploadBytes},
		a.log,
	), nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("redis close error")
		}
	}
	a.pool.Close()
}
