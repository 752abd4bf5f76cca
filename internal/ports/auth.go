package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// ErrNotFound is returned by stores and sources when nothing is recorded for the key.
var ErrNotFound = errors.New("not found")

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider authenticates principals against an IdP. Implementations are shared
// by every client and hold no per-client state.
//
// Errors are *domainauth.AuthError values of kind InvalidCredentials or NetworkError.
type AuthProvider interface {
	// Name identifies the provider in Identity.Provider.
	Name() string

	// PasswordSignIn authenticates with email and password.
	PasswordSignIn(ctx context.Context, email, password string) (domainauth.Identity, error)

	// Begin starts the federated flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the federated flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// AllowlistSource looks up the policy record for a normalized email.
// It returns ErrNotFound when the email is not listed.
type AllowlistSource interface {
	Lookup(ctx context.Context, email string) (domainauth.AllowlistRecord, error)
}

// AllowlistStore is a mutable allowlist used by the admin tooling.
type AllowlistStore interface {
	AllowlistSource
	List(ctx context.Context) ([]domainauth.AllowlistEntry, error)
	Upsert(ctx context.Context, entry domainauth.AllowlistEntry) error
	Delete(ctx context.Context, email string) (bool, error)
}

// IdentityStore persists the current provider identity of one client.
type IdentityStore interface {
	// Load returns ErrNotFound when no identity is stored.
	Load(ctx context.Context) (domainauth.Identity, error)
	Save(ctx context.Context, id domainauth.Identity) error
	Clear(ctx context.Context) error
}

// DemoStore persists the demo-role override of one client.
type DemoStore interface {
	// Load returns ErrNotFound when no override is stored.
	Load(ctx context.Context) (domainauth.Role, error)
	Save(ctx context.Context, role domainauth.Role) error
	Clear(ctx context.Context) error
}

// ClientStateStore hands out per-client stores keyed by client id.
type ClientStateStore interface {
	Identity(clientID string) IdentityStore
	Demo(clientID string) DemoStore
}
