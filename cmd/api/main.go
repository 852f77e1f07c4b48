package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/DTigi/BankApplication/internal/config"
	"github.com/DTigi/BankApplication/internal/infra"
	"github.com/DTigi/BankApplication/internal/logging"
	"github.com/DTigi/BankApplication/internal/routes"
	"github.com/DTigi/BankApplication/internal/seed"
	"github.com/DTigi/BankApplication/internal/server"
)

func main() {
	_ = godotenv.Load() // optional

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName, cfg.AppEnv)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := infra.Migrate(ctx, pool); err != nil {
			return err
		}
		db = pool
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", slog.Any("error", err))
			}
		}()
		cache = client
	} else {
		logger.Warn("REDIS_URL not set, idempotency and login rate limiting disabled")
	}

	srv, err := server.New(cfg, db, cache, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	if cfg.SeedClients > 0 {
		if err := seedFixtures(ctx, cfg, srv.Services(), logger); err != nil {
			return err
		}
	}

	go sweepSessions(ctx, srv.Services(), cfg.SessionTTL, logger)

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seedFixtures(ctx context.Context, cfg config.Config, svcs *routes.Services, logger *slog.Logger) error {
	records, err := seed.New(svcs.Identity, svcs.Accounts, 0).Run(ctx, cfg.SeedClients)
	if err != nil {
		return fmt.Errorf("seed fixtures: %w", err)
	}
	logger.Info("fixtures generated", slog.Int("accounts", len(records)))
	if cfg.SeedCSVPath == "" {
		return nil
	}
	if err := seed.WriteCSVFile(cfg.SeedCSVPath, records); err != nil {
		return err
	}
	logger.Info("fixtures exported", slog.String("path", cfg.SeedCSVPath))
	return nil
}

const minSweepInterval = time.Second

// sweepInterval is half the session TTL, never shorter than minSweepInterval.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/2, minSweepInterval)
}

func sweepSessions(ctx context.Context, svcs *routes.Services, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval(ttl))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svcs.Sessions.Sweep(); n > 0 {
				logger.Debug("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
