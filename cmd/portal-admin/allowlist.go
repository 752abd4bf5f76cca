package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/auy/thinkers-portal/config"
	"github.com/auy/thinkers-portal/internal/bootstrap"
	"github.com/auy/thinkers-portal/internal/service"
)

func parseAllowlistAddFlags(args []string) (service.AddInput, error) {
	var in service.AddInput
	fs := flag.NewFlagSet("allowlist-add", flag.ContinueOnError)
	fs.StringVar(&in.Email, "email", "", "email to allow (required)")
	fs.StringVar(&in.Role, "role", "", "role: admin, teacher or student (required)")
	fs.StringVar(&in.Name, "name", "", "display name")
	fs.StringVar(&in.UID, "uid", "", "directory uid")
	fs.StringVar(&in.StudentID, "student-id", "", "student id")
	fs.StringVar(&in.Course, "course", "", "course of study")
	fs.StringVar(&in.Department, "department", "", "department")
	if err := fs.Parse(args); err != nil {
		return in, err
	}
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Role) == "" {
		return in, errors.New("--email and --role are required")
	}
	return in, nil
}

func parseEmailFlag(name string, args []string) (string, error) {
	var email string
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&email, "email", "", "email address (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if email == "" && fs.NArg() == 1 {
		email = fs.Arg(0)
	}
	if strings.TrimSpace(email) == "" {
		return "", errors.New("--email is required")
	}
	return email, nil
}

func runAllowlistAdd(cmdCtx *commandContext, args []string) error {
	in, err := parseAllowlistAddFlags(args)
	if err != nil {
		return err
	}
	warnIfNotPostgres(cmdCtx)
	return withAllowlistRepo(cmdCtx, func(ctx context.Context, svc *service.AllowlistService) error {
		entry, addErr := svc.Add(ctx, in)
		if addErr != nil {
			return addErr
		}
		return fprintf(cmdCtx.Stdout, "allowed %s as %s\n", entry.Email, entry.Role)
	})
}

func runAllowlistRemove(cmdCtx *commandContext, args []string) error {
	email, err := parseEmailFlag("allowlist-remove", args)
	if err != nil {
		return err
	}
	warnIfNotPostgres(cmdCtx)
	return withAllowlistRepo(cmdCtx, func(ctx context.Context, svc *service.AllowlistService) error {
		deleted, rmErr := svc.Remove(ctx, email)
		if rmErr != nil {
			return rmErr
		}
		if !deleted {
			return fprintf(cmdCtx.Stdout, "%s was not allowlisted\n", email)
		}
		return fprintf(cmdCtx.Stdout, "removed %s\n", email)
	})
}

func runAllowlistList(cmdCtx *commandContext, _ []string) error {
	return withAllowlistRepo(cmdCtx, func(ctx context.Context, svc *service.AllowlistService) error {
		entries, err := svc.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmdCtx.Stdout, 0, 4, 2, ' ', 0)
		if err = fprintf(tw, "EMAIL\tROLE\tNAME\tDETAIL\n"); err != nil {
			return err
		}
		for _, e := range entries {
			detail := e.Department
			if e.StudentID != "" {
				detail = strings.TrimSpace(e.StudentID + " " + e.Course)
			}
			if err = fprintf(tw, "%s\t%s\t%s\t%s\n", e.Email, e.Role, e.Name, detail); err != nil {
				return err
			}
		}
		if err = tw.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
		return fprintf(cmdCtx.Stdout, "\nTotal: %d\n", len(entries))
	})
}

// runAllowlistCheck resolves through whichever backend the portal itself is configured with.
func runAllowlistCheck(cmdCtx *commandContext, args []string) error {
	email, err := parseEmailFlag("allowlist-check", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	var db *sql.DB
	if cmdCtx.Config.NeedsDB() {
		if db, err = connectDB(cmdCtx); err != nil {
			return err
		}
		defer closeDB(cmdCtx, db)
	}

	source, err := bootstrap.BuildAllowlistSource(cmdCtx.Config.Allowlist, db)
	if err != nil {
		return err
	}
	svc := service.NewAllowlistService(service.AllowlistServiceOptions{Source: source, Logger: cmdCtx.Logger})

	entry := svc.Resolve(ctx, email)
	if entry == nil {
		return fprintf(cmdCtx.Stdout, "%s: denied (backend %s)\n", email, cmdCtx.Config.Allowlist.Backend)
	}
	return fprintf(cmdCtx.Stdout, "%s: allowed as %s (%s) via %s\n",
		entry.Email, entry.Role, entry.Name, cmdCtx.Config.Allowlist.Backend)
}

func warnIfNotPostgres(cmdCtx *commandContext) {
	if cmdCtx.Config.Allowlist.Backend != config.AllowlistBackendPostgres {
		cmdCtx.Logger.Warn("editing the postgres allowlist while the portal reads another backend",
			"allowlist_backend", cmdCtx.Config.Allowlist.Backend)
	}
}
