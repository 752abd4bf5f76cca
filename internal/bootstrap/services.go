package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/auy/thinkers-portal/config"
	"github.com/auy/thinkers-portal/internal/adapters/fixtures"
	"github.com/auy/thinkers-portal/internal/adapters/memstore"
	redisadapter "github.com/auy/thinkers-portal/internal/adapters/redis"
	"github.com/auy/thinkers-portal/internal/adapters/scriptapi"
	httpx "github.com/auy/thinkers-portal/internal/http"
	"github.com/auy/thinkers-portal/internal/ports"
	"github.com/auy/thinkers-portal/internal/service"
)

// ServiceDeps holds the infrastructure the services are built from.
// DB and RedisClient may be nil when no configured component needs them.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds every service the portal runs.
type ServiceContainer struct {
	Portal    *service.PortalService
	Academic  *service.AcademicService
	Allowlist *service.AllowlistService
	Sweeper   *service.SweeperService
	Readiness []httpx.ReadinessCheck
}

// NewServices wires the portal services from configuration and infrastructure.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := BuildAuthProvider(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	source, err := BuildAllowlistSource(cfg.Allowlist, deps.DB)
	if err != nil {
		return nil, err
	}
	allowlistSvc := service.NewAllowlistService(service.AllowlistServiceOptions{Source: source, Logger: logger})

	state, stateSweep, err := buildClientState(cfg.Session, deps.RedisClient)
	if err != nil {
		return nil, err
	}

	var demo service.DemoProfiles
	if cfg.Auth.DemoEnabled {
		demo = fixtures.DemoProfile
	}

	portal := service.NewPortalService(service.PortalServiceOptions{
		Provider:             provider,
		Allowlist:            allowlistSvc,
		State:                state,
		DemoProfiles:         demo,
		RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail,
		IdleTimeout:          cfg.Session.IdleTimeout,
		Logger:               logger,
	})

	api, err := scriptapi.NewClient(scriptapi.Config{
		URL:        cfg.DataAPI.URL,
		Timeout:    cfg.DataAPI.Timeout,
		RetryLimit: cfg.DataAPI.RetryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("data api client: %w", err)
	}
	if !api.Configured() {
		logger.Info("DATA_API_URL not set; serving sample academic data")
	}
	academic := service.NewAcademicService(service.AcademicServiceOptions{
		API:      api,
		Fallback: fixtures.Data{},
		Logger:   logger,
	})

	steps := []service.SweepStep{{Label: "idle_sessions", Fn: portal.SweepIdle}}
	if stateSweep != nil {
		steps = append(steps, service.SweepStep{Label: "client_state", Fn: stateSweep})
	}
	sweeper, err := service.NewSweeperService(service.SweeperServiceOptions{
		Steps:    steps,
		Interval: cfg.Session.SweepInterval,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("sweeper: %w", err)
	}

	return &ServiceContainer{
		Portal:    portal,
		Academic:  academic,
		Allowlist: allowlistSvc,
		Sweeper:   sweeper,
		Readiness: readinessChecks(deps),
	}, nil
}

// buildClientState returns the per-client store and, for in-process storage, its expiry sweep.
//
//nolint:ireturn // the store is chosen at runtime.
func buildClientState(
	cfg config.SessionConfig,
	client redis.UniversalClient,
) (ports.ClientStateStore, service.SweepFunc, error) {
	switch cfg.Store {
	case config.SessionStoreRedis:
		if client == nil {
			return nil, nil, errors.New("redis session store requires a redis connection")
		}
		return redisadapter.NewClientState(client, redisadapter.ClientStateOptions{
			Prefix: cfg.RedisPrefix,
			TTL:    cfg.TTL,
		}), nil, nil
	case config.SessionStoreMemory, "":
		store := memstore.New(cfg.TTL)
		return store, func(context.Context) (int, error) { return store.Sweep(), nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}

func readinessChecks(deps *ServiceDeps) []httpx.ReadinessCheck {
	var checks []httpx.ReadinessCheck
	if deps.DB != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "postgres", Probe: deps.DB.PingContext})
	}
	if deps.RedisClient != nil {
		client := deps.RedisClient
		checks = append(checks, httpx.ReadinessCheck{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	return checks
}
