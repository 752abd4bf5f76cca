package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/auy/thinkers-portal/config"
	"github.com/auy/thinkers-portal/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger := bootstrap.InitLogger()
	err := run(ctx, logger)
	stop()
	if err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting thinkers portal",
		"auth_mode", cfg.Auth.Mode,
		"allowlist_backend", cfg.Allowlist.Backend,
		"session_store", cfg.Session.Store,
		"demo_enabled", cfg.Auth.DemoEnabled,
		"dev", cfg.IsDev)

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer closeInfrastructure(ctx, logger, db, redisClient)

	if db != nil {
		if cfg.Postgres.RunMigrationsOnStart {
			if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
				return err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.Run(ctx, &bootstrap.RunConfig{Config: &cfg, Services: services, Logger: logger})
}

// initInfrastructure connects only the stores the configured backends use.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	var db *sql.DB
	if cfg.NeedsDB() {
		var err error
		db, err = bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	if !cfg.NeedsRedis() {
		return db, nil, nil
	}
	redisClient, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		err = fmt.Errorf("connect redis: %w", err)
		if db != nil {
			if cerr := db.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
			}
		}
		return nil, nil, err
	}
	return db, redisClient, nil
}

func closeInfrastructure(ctx context.Context, logger *slog.Logger, db *sql.DB, redisClient redis.UniversalClient) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
}
