package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"caku/internal/bot"
	"caku/internal/clients/chart"
	"caku/internal/clients/osint"
	"caku/internal/config"
	"caku/internal/database"
	"caku/internal/handlers"
	"caku/internal/jobs"
	"caku/internal/log"
	"caku/internal/repository"
	"caku/internal/server"
	"caku/internal/service"
	"caku/internal/transport/telegram"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfg    *config.AppConfig
		logger zerolog.Logger
	)

	root := &cobra.Command{
		Use:          "caku",
		Short:        "Personal finance chat bot",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger = log.New(cfg.Environment, cfg.Logging.Level)
			return nil
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the chat bot, scheduler and dashboard API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool, err := database.NewPostgresPool(cmd.Context(), cfg.Postgres)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := database.Migrate(cmd.Context(), pool); err != nil {
					return err
				}
				logger.Info().Msg("migrations applied")
				return nil
			},
		},
		tokenCmd(&cfg, &logger),
	)
	return root
}

func tokenCmd(cfg **config.AppConfig, logger *zerolog.Logger) *cobra.Command {
	var days int
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := database.NewPostgresPool(cmd.Context(), (*cfg).Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			auth := service.NewAuthService(repository.NewTokenRepository(pool), (*cfg).Bot.Admins, *logger)
			tok, err := auth.IssueToken(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d days)\n", tok.Token, tok.ExpiresInDays)
			return nil
		},
	}
	issue.Flags().IntVar(&days, "days", service.DefaultTokenDays, "validity in days after redemption")

	token := &cobra.Command{Use: "token", Short: "Manage access tokens"}
	token.AddCommand(issue)
	return token
}

func serve(parent context.Context, cfg *config.AppConfig, logger zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := database.Migrate(ctx, a.pool); err != nil {
		return err
	}

	transport, err := telegram.New(cfg.Telegram, logger)
	if err != nil {
		return err
	}

	var dashboard *bot.DashboardLinks
	if cfg.Security.JWTSecret != "" {
		dashboard = bot.NewDashboardLinks(cfg.Security.JWTSecret, cfg.Security.JWTTTL, cfg.Security.DashboardBaseURL)
	}

	router := bot.NewRouter(bot.Deps{
		Auth:      a.auth,
		Ledger:    a.ledger,
		Vault:     a.vault,
		Wishlist:  a.wishlist,
		Coach:     a.coach,
		OSINT:     osint.NewService(cfg.OSINT, logger),
		Charts:    chart.New(cfg.Bot.HandlerTimeout),
		Dashboard: dashboard,
		Sender:    transport,
		Metrics:   a.metrics,
	}, bot.Config{
		HandlerTimeout: cfg.Bot.HandlerTimeout,
		RateLimit:      cfg.Bot.RateLimit,
		RateBurst:      cfg.Bot.RateBurst,
	}, logger)

	scheduler := jobs.NewScheduler(jobs.Deps{
		Ledger:   a.ledger,
		Auth:     a.auth,
		Coach:    a.coach,
		Wishlist: a.wishlist,
		Notifier: transport,
		Metrics:  a.metrics,
		Queue:    a.redis,
		Stream:   cfg.Redis.Stream,
	}, cfg.Jobs, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		checks := map[string]handlers.Checker{"postgres": a.pool.Ping}
		if a.redis != nil {
			checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
		}
		handlerSet := handlers.NewHandlerSet(logger, handlers.Options{
			Environment: cfg.Environment,
			JWTSecret:   cfg.Security.JWTSecret,
			Ledger:      a.ledger,
			Auth:        a.auth,
			Wishlist:    a.wishlist,
			Checks:      checks,
		})
		httpServer = server.NewHTTPServer(cfg, logger, handlerSet, a.metrics, a.registry)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server failed")
				stop()
			}
		}()
	}

	logger.Info().Msg("bot started")
	if err := transport.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("telegram transport stopped")
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler jobs still running at shutdown")
	}

	logger.Info().Msg("bot exited cleanly")
	return nil
}
