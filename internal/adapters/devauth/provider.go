package devauth

// Package devauth provides a simple, config-driven AuthProvider for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// ProviderName is recorded in Identity.Provider.
const ProviderName = "dev"

// Config controls the dev auth provider behavior.
// Accounts maps email to a bcrypt password hash. FederatedEmail is the identity
// returned by the federated flow; it may be empty to disable that flow.
type Config struct {
	Accounts        map[string]string
	FederatedEmail  string
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.AuthProvider for local development.
// Password sign-in checks bcrypt hashes; the federated flow short-circuits OAuth by
// redirecting back to our own callback with locally generated state and nonce.
type Provider struct {
	accounts        map[string][]byte
	federatedEmail  string
	sessionDuration time.Duration

	mu   sync.Mutex
	last time.Time
}

var _ ports.AuthProvider = (*Provider)(nil)

// dummyHash keeps the unknown-account path as slow as a real comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dev-auth-dummy"), bcrypt.MinCost)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Accounts) == 0 && cfg.FederatedEmail == "" {
		return nil, errors.New("dev auth: at least one account or a federated email is required")
	}
	accounts := make(map[string][]byte, len(cfg.Accounts))
	for email, hash := range cfg.Accounts {
		key := domainauth.NormalizeEmail(email)
		if key == "" {
			return nil, errors.New("dev auth: account email is empty")
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("dev auth: account %s: invalid bcrypt hash: %w", key, err)
		}
		accounts[key] = []byte(hash)
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Provider{
		accounts:        accounts,
		federatedEmail:  domainauth.NormalizeEmail(cfg.FederatedEmail),
		sessionDuration: dur,
	}, nil
}

// HashPassword returns a bcrypt hash suitable for Config.Accounts.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (p *Provider) Name() string { return ProviderName }

// PasswordSignIn verifies the password against the configured hash.
func (p *Provider) PasswordSignIn(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindNetwork, err)
	}
	key := domainauth.NormalizeEmail(email)
	hash, ok := p.accounts[key]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, nil)
	}
	return p.issue(key), nil
}

// Begin returns a local callback URL and cryptographically secure state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	if p.federatedEmail == "" {
		return "", "", "", errors.New("dev auth: federated sign-in is not configured")
	}
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	// Our standard handler expects GET /auth/callback?code=...&state=...
	authURL := "/auth/callback?code=dev&state=" + state
	return authURL, state, nonce, nil
}

// Exchange ignores the provided code/state/nonce (validation handled by handler) and returns the federated identity.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	if p.federatedEmail == "" {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, errors.New("federated sign-in is not configured"))
	}
	return p.issue(p.federatedEmail), nil
}

// issue builds a fresh identity. IssuedAt is strictly increasing so two sign-ins never compare equal.
func (p *Provider) issue(email string) domainauth.Identity {
	p.mu.Lock()
	now := time.Now()
	if !now.After(p.last) {
		now = p.last.Add(time.Nanosecond)
	}
	p.last = now
	p.mu.Unlock()
	return domainauth.Identity{
		UserID:        "dev:" + email,
		Email:         email,
		EmailVerified: true,
		Provider:      ProviderName,
		IssuedAt:      now,
		ExpiresAt:     now.Add(p.sessionDuration),
	}
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least n base64 URL chars
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		// pad
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
