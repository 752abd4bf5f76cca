package oidc

// Package oidc provides OIDC/OAuth authentication adapters for the portal.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// ProviderName is recorded in Identity.Provider.
const ProviderName = "oidc"

// Provider implements the AuthProvider interface using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu   sync.Mutex
	last time.Time
}

var _ ports.AuthProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s client
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a new OIDC provider.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{httpClient: httpClient}

	// Single discovery fetch; the client context also serves later UserInfo calls.
	ctx := gooidc.ClientContext(context.Background(), httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

func (p *Provider) Name() string { return ProviderName }

// PasswordSignIn uses the OAuth2 resource owner password grant.
func (p *Provider) PasswordSignIn(ctx context.Context, email, password string) (domainauth.Identity, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" || password == "" {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, errors.New("email and password are required"))
	}
	token, err := p.config.PasswordCredentialsToken(p.clientCtx(ctx), email, password)
	if err != nil {
		return domainauth.Identity{}, classify(fmt.Errorf("password grant: %w", err))
	}
	id, err := p.identityFromToken(ctx, token, "", false)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if id.Email == "" {
		id.Email = email
	}
	return id, nil
}

func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// Note: Don't override redirect_uri here as it should match the configured RedirectURL exactly
	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Identity{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	token, err := p.config.Exchange(p.clientCtx(ctx), in.Code)
	if err != nil {
		return domainauth.Identity{}, classify(fmt.Errorf("exchange code for token: %w", err))
	}
	return p.identityFromToken(ctx, token, in.Nonce, p.hasOpenIDScope())
}

func (p *Provider) clientCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// identityFromToken maps the ID token (when present) and UserInfo into an Identity.
func (p *Provider) identityFromToken(ctx context.Context, token *oauth2.Token, nonce string, requireIDToken bool) (domainauth.Identity, error) {
	var f idFields
	if rawID, err := getIDTokenFromToken(token); err == nil {
		f, err = p.verifyIDToken(ctx, rawID, nonce)
		if err != nil {
			return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, err)
		}
	} else if requireIDToken {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, err)
	}

	if f.email == "" || f.userID == "" {
		if err := p.fillFromUserInfo(ctx, token, &f); err != nil {
			return domainauth.Identity{}, classify(fmt.Errorf("get user info: %w", err))
		}
	}

	expiresAt := time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}
	return domainauth.Identity{
		UserID:        f.userID,
		Email:         domainauth.NormalizeEmail(f.email),
		EmailVerified: f.emailVerified,
		Provider:      ProviderName,
		IssuedAt:      p.now(),
		ExpiresAt:     expiresAt,
	}, nil
}

// now is strictly increasing so two sign-ins never share an IssuedAt.
func (p *Provider) now() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := time.Now()
	if !t.After(p.last) {
		t = p.last.Add(time.Nanosecond)
	}
	p.last = t
	return t
}

type idFields struct {
	userID        string
	email         string
	emailVerified bool
}

type idTokenClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Nonce         string `json:"nonce"`
}

func (p *Provider) verifyIDToken(ctx context.Context, rawID, expectedNonce string) (idFields, error) {
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return idFields{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return idFields{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return idFields{}, errors.New("invalid nonce")
	}
	return mapIDTokenClaims(claims), nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, token *oauth2.Token, f *idFields) error {
	ui, err := p.oidcProvider.UserInfo(gooidc.ClientContext(ctx, p.httpClient), oauth2.StaticTokenSource(token))
	if err != nil {
		return err
	}
	fillFromUserInfoClaims(f, ui)
	return nil
}

func mapIDTokenClaims(c idTokenClaims) idFields {
	return idFields{userID: c.Sub, email: c.Email, emailVerified: c.EmailVerified}
}

// fillFromUserInfoClaims fills missing fields without overwriting ID token values.
func fillFromUserInfoClaims(f *idFields, ui *gooidc.UserInfo) {
	if ui == nil {
		return
	}
	if f.userID == "" {
		f.userID = ui.Subject
	}
	if f.email == "" {
		f.email = ui.Email
		f.emailVerified = ui.EmailVerified
	}
}

// classify maps OAuth2 and transport failures onto the auth error taxonomy.
// Token endpoint rejections are credential failures; anything else is a network failure.
func classify(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch {
		case re.ErrorCode == "invalid_grant", re.ErrorCode == "invalid_client",
			re.ErrorCode == "unauthorized_client", re.ErrorCode == "access_denied":
			return domainauth.NewAuthError(domainauth.KindInvalidCredentials, err)
		case re.Response != nil && (re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized):
			return domainauth.NewAuthError(domainauth.KindInvalidCredentials, err)
		}
	}
	return domainauth.NewAuthError(domainauth.KindNetwork, err)
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, "openid")
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
