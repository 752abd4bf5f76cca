package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/auy/thinkers-portal/internal/bootstrap"
	"github.com/auy/thinkers-portal/internal/data"
	"github.com/auy/thinkers-portal/internal/migrate"
	"github.com/auy/thinkers-portal/internal/service"
)

// connectDB opens the portal database for commands that manage it.
func connectDB(cmdCtx *commandContext) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(cmdCtx.Ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func closeDB(cmdCtx *commandContext, db *sql.DB) {
	if err := db.Close(); err != nil {
		cmdCtx.Logger.Warn("db close failed", "error", err)
	}
}

// withAllowlistRepo runs fn against the Postgres allowlist table, migrating first so the
// table exists on a fresh database.
func withAllowlistRepo(cmdCtx *commandContext, fn func(ctx context.Context, svc *service.AllowlistService) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	if err = migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	svc := service.NewAllowlistService(service.AllowlistServiceOptions{
		Source: data.NewAllowlistRepo(db),
		Logger: cmdCtx.Logger,
	})
	return fn(ctx, svc)
}

func commandTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultCommandTimeout
	}
	return d
}
