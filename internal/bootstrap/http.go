package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auy/thinkers-portal/config"
	httpx "github.com/auy/thinkers-portal/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the portal router and wraps it in an http.Server.
func NewHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http server config, app config and services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := httpx.NewRouter(httpx.RouterServices{
		Sessions:           cfg.Services.Portal,
		Academic:           cfg.Services.Academic,
		Readiness:          cfg.Services.Readiness,
		CookieDomain:       cfg.Config.HTTP.CookieDomain,
		ClientCookieMaxAge: cfg.Config.HTTP.ClientCookieMaxAge,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	addr := cfg.Config.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}, nil
}

// RunConfig groups what Run needs to serve until shutdown.
type RunConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// Run serves HTTP and sweeps idle sessions until ctx is cancelled or either fails,
// then shuts the server down gracefully.
func Run(ctx context.Context, cfg *RunConfig) error {
	if cfg == nil {
		return errors.New("run config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server, err := NewHTTPServer(&HTTPServerConfig{Config: cfg.Config, Services: cfg.Services, Logger: logger})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		return cfg.Services.Sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(context.WithoutCancel(ctx), server, cfg, logger)
	})

	return g.Wait()
}

func shutdown(ctx context.Context, server *http.Server, cfg *RunConfig, logger *slog.Logger) error {
	logger.InfoContext(ctx, "shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Config.HTTP.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	cfg.Services.Portal.Close()
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.InfoContext(ctx, "HTTP server stopped")
	return nil
}
