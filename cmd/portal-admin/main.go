package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/auy/thinkers-portal/config"
	"github.com/auy/thinkers-portal/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdin  io.Reader
	Stdout io.Writer
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := fprintf(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"migrate-status": {
			name:        "migrate-status",
			description: "List embedded migrations and whether each has been applied",
			run:         runMigrationStatus,
		},
		"allowlist-add": {
			name:        "allowlist-add",
			description: "Grant portal access to an email with a role",
			run:         runAllowlistAdd,
		},
		"allowlist-remove": {
			name:        "allowlist-remove",
			description: "Revoke portal access for an email",
			run:         runAllowlistRemove,
		},
		"allowlist-list": {
			name:        "allowlist-list",
			description: "List allowlisted emails",
			run:         runAllowlistList,
		},
		"allowlist-check": {
			name:        "allowlist-check",
			description: "Resolve an email against the configured allowlist backend",
			run:         runAllowlistCheck,
		},
		"hash-password": {
			name:        "hash-password",
			description: "Read a password from stdin and print a bcrypt hash for DEV_AUTH_ACCOUNTS",
			run:         runHashPassword,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := fprintf(w, "Usage: portal-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := fprintf(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := fprintf(w, "  %-20s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func fprintf(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
