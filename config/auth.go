package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"thinkers-portal"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls the local credential provider used when AUTH_MODE=mock.
type DevAuthConfig struct {
	// Accounts maps email to bcrypt hash, e.g. "a@x.edu=$2a$10$...;b@x.edu=$2a$10$...".
	// Generate hashes with `portal-admin hash-password`.
	Accounts map[string]string `env:"ACCOUNTS" envSeparator:";" envKeyValSeparator:"="`
	// FederatedEmail is the identity returned by the simulated federated sign-in.
	FederatedEmail string `env:"FEDERATED_EMAIL"`
	// SessionDuration bounds how long an issued dev identity stays valid.
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// DemoEnabled exposes the demo role picker on the login page.
	DemoEnabled bool `env:"DEMO_ENABLED" envDefault:"true"`

	// RequireVerifiedEmail rejects provider identities whose email is not verified.
	RequireVerifiedEmail bool `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"true"`
}

// AllowlistBackend selects where allowlist records are read from.
type AllowlistBackend string

const (
	// AllowlistBackendStatic serves the built-in sample directory.
	AllowlistBackendStatic AllowlistBackend = "static"
	// AllowlistBackendHTTP queries a remote allowlist endpoint.
	AllowlistBackendHTTP AllowlistBackend = "http"
	// AllowlistBackendPostgres reads the allowlist_entries table.
	AllowlistBackendPostgres AllowlistBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for AllowlistBackend.
func (b *AllowlistBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch AllowlistBackend(v) {
	case AllowlistBackendStatic, AllowlistBackendHTTP, AllowlistBackendPostgres:
		*b = AllowlistBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid AllowlistBackend: %q (valid options: static, http, postgres)", v)
	}
}

// AllowlistConfig configures the allowlist source.
type AllowlistConfig struct {
	Backend AllowlistBackend `env:"BACKEND" envDefault:"static"`
	// URL is the remote lookup endpoint; the email is sent as the "email" query parameter.
	URL string `env:"URL"`
	// EntryExpr is a JMESPath expression selecting the record from the response body.
	EntryExpr string        `env:"ENTRY_EXPR"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"10s"`
}

// Sanitize applies guardrails to allowlist configuration values.
func (a *AllowlistConfig) Sanitize() {
	a.URL = strings.TrimSpace(a.URL)
	a.EntryExpr = strings.TrimSpace(a.EntryExpr)
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
}
