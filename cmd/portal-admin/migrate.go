package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/auy/thinkers-portal/internal/bootstrap"
	"github.com/auy/thinkers-portal/internal/migrate"
)

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(name string, args []string) (migrateOptions, error) {
	var opts migrateOptions
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Timeout = commandTimeout(opts.Timeout)
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags("migrate", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runMigrationStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags("migrate-status", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := connectDB(cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(cmdCtx, db)

	statuses, err := migrate.List(ctx, db)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	tw := tabwriter.NewWriter(cmdCtx.Stdout, 0, 4, 2, ' ', 0)
	if err = fprintf(tw, "VERSION\tAPPLIED\n"); err != nil {
		return err
	}
	for _, s := range statuses {
		if err = fprintf(tw, "%s\t%t\n", s.Version, s.Applied); err != nil {
			return err
		}
	}
	return tw.Flush()
}
