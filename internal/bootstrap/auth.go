package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/auy/thinkers-portal/config"
	"github.com/auy/thinkers-portal/internal/adapters/allowlist"
	"github.com/auy/thinkers-portal/internal/adapters/devauth"
	"github.com/auy/thinkers-portal/internal/adapters/fixtures"
	"github.com/auy/thinkers-portal/internal/adapters/oidc"
	"github.com/auy/thinkers-portal/internal/data"
	"github.com/auy/thinkers-portal/internal/ports"
)

// BuildAuthProvider creates the identity provider for the configured auth mode.
//
//nolint:ireturn // the provider is chosen at runtime.
func BuildAuthProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.AuthProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Accounts:        cfg.DevAuth.Accounts,
			FederatedEmail:  cfg.DevAuth.FederatedEmail,
			SessionDuration: cfg.DevAuth.SessionDuration,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		if logger != nil {
			logger.Warn("using dev auth provider; do not run this mode in production",
				"accounts", len(cfg.DevAuth.Accounts))
		}
		return prov, nil

	case config.AuthModeOAuth:
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scope:        cfg.OAuth.Scope,
			DiscoveryURL: cfg.OAuth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// BuildAllowlistSource creates the allowlist source for the configured backend.
// db is only consulted by the postgres backend.
//
//nolint:ireturn // the source is chosen at runtime.
func BuildAllowlistSource(cfg config.AllowlistConfig, db *sql.DB) (ports.AllowlistSource, error) {
	switch cfg.Backend {
	case config.AllowlistBackendStatic, "":
		return allowlist.NewStaticSource(fixtures.AllowlistEntries()...), nil

	case config.AllowlistBackendHTTP:
		src, err := allowlist.NewHTTPSource(allowlist.HTTPConfig{
			URL:       cfg.URL,
			EntryExpr: cfg.EntryExpr,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("http allowlist source: %w", err)
		}
		return src, nil

	case config.AllowlistBackendPostgres:
		if db == nil {
			return nil, errors.New("postgres allowlist backend requires a database connection")
		}
		return data.NewAllowlistRepo(db), nil

	default:
		return nil, fmt.Errorf("unsupported allowlist backend %q", cfg.Backend)
	}
}
