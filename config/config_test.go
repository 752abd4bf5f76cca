package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeOAuth {
		t.Errorf("Auth.Mode = %q, want %q", cfg.Auth.Mode, AuthModeOAuth)
	}
	if !cfg.Auth.DemoEnabled || !cfg.Auth.RequireVerifiedEmail {
		t.Errorf("demo and verified-email defaults should be on: %+v", cfg.Auth)
	}
	if cfg.Allowlist.Backend != AllowlistBackendStatic {
		t.Errorf("Allowlist.Backend = %q, want static", cfg.Allowlist.Backend)
	}
	if cfg.Session.Store != SessionStoreMemory {
		t.Errorf("Session.Store = %q, want memory", cfg.Session.Store)
	}
	if cfg.NeedsDB() || cfg.NeedsRedis() {
		t.Errorf("default config should not need external stores")
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Session.TTL != 8*time.Hour {
		t.Errorf("Session.TTL = %v", cfg.Session.TTL)
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "MOCK")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://portal.example.edu/auth/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.edu/.well-known/openid-configuration")
	t.Setenv("OAUTH_SCOPE", "openid email")
	t.Setenv("DEV_AUTH_ACCOUNTS", "admin@university.edu=$2a$10$abc;teacher@university.edu=$2a$10$def")
	t.Setenv("DEV_AUTH_FEDERATED_EMAIL", "teacher@university.edu")
	t.Setenv("DEMO_ENABLED", "false")
	t.Setenv("REQUIRE_VERIFIED_EMAIL", "false")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeMock,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://portal.example.edu/auth/callback",
			Scope:        "openid email",
			DiscoveryURL: "https://login.example.edu/.well-known/openid-configuration",
		},
		DevAuth: DevAuthConfig{
			Accounts: map[string]string{
				"admin@university.edu":   "$2a$10$abc",
				"teacher@university.edu": "$2a$10$def",
			},
			FederatedEmail:  "teacher@university.edu",
			SessionDuration: 8 * time.Hour,
		},
		DemoEnabled:          false,
		RequireVerifiedEmail: false,
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_ParseBackends(t *testing.T) {
	t.Setenv("ALLOWLIST_BACKEND", "postgres")
	t.Setenv("ALLOWLIST_TIMEOUT", "0s")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_SWEEP_INTERVAL", "10ms")
	t.Setenv("DATA_API_URL", "  https://script.example.com/exec  ")
	t.Setenv("DATA_API_RETRY_LIMIT", "-1")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if !cfg.NeedsDB() || !cfg.NeedsRedis() {
		t.Fatalf("postgres allowlist and redis sessions should need both stores")
	}
	if cfg.Allowlist.Timeout != 10*time.Second {
		t.Errorf("Allowlist.Timeout = %v, want 10s", cfg.Allowlist.Timeout)
	}
	if cfg.Session.SweepInterval != time.Second {
		t.Errorf("Session.SweepInterval = %v, want 1s", cfg.Session.SweepInterval)
	}
	if cfg.DataAPI.URL != "https://script.example.com/exec" {
		t.Errorf("DataAPI.URL = %q", cfg.DataAPI.URL)
	}
	if cfg.DataAPI.RetryLimit != 0 {
		t.Errorf("DataAPI.RetryLimit = %d, want 0", cfg.DataAPI.RetryLimit)
	}
}

func TestEnumUnmarshalText(t *testing.T) {
	tests := []struct {
		name    string
		target  interface{ UnmarshalText([]byte) error }
		input   string
		wantErr bool
	}{
		{"auth oauth", new(AuthMode), "oauth", false},
		{"auth unknown", new(AuthMode), "saml", true},
		{"allowlist http", new(AllowlistBackend), " HTTP ", false},
		{"allowlist unknown", new(AllowlistBackend), "ldap", true},
		{"session redis", new(SessionStore), "redis", false},
		{"session unknown", new(SessionStore), "cookie", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.UnmarshalText([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatal("NODE_ENV=development should enable dev mode")
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{ClientCookieMaxAge: time.Minute}
	h.Sanitize()
	if h.Addr != ":8080" || h.ClientCookieMaxAge != time.Hour || h.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected sanitized config: %+v", h)
	}
}
