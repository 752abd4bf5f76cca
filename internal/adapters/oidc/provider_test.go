package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// fakeIdP serves discovery, a password-grant token endpoint and userinfo.
type fakeIdP struct {
	srv      *httptest.Server
	password string
	failCode int
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{password: "correct"}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                f.srv.URL,
			AuthorizationEndpoint: f.srv.URL + "/auth",
			TokenEndpoint:         f.srv.URL + "/token",
			UserinfoEndpoint:      f.srv.URL + "/userinfo",
			JwksURI:               f.srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if f.failCode != 0 {
			w.WriteHeader(f.failCode)
			_, _ = w.Write([]byte(`{"error":"server_error"}`))
			return
		}
		if r.Form.Get("grant_type") == "password" && r.Form.Get("password") != f.password {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"sub-42","email":"Admin@University.edu","email_verified":true}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) provider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        "openid profile email",
		DiscoveryURL: f.srv.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Success(t *testing.T) {
	idp := newFakeIdP(t)
	provider := idp.provider(t)
	assert.Equal(t, idp.srv.URL+"/auth", provider.config.Endpoint.AuthURL)
	assert.Equal(t, idp.srv.URL+"/token", provider.config.Endpoint.TokenURL)
	assert.Equal(t, ProviderName, provider.Name())
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name:   "missing client ID",
			config: ProviderConfig{ClientSecret: "secret", RedirectURL: "http://localhost/callback", DiscoveryURL: "http://example.com"},
			errMsg: "client ID is required",
		},
		{
			name:   "missing client secret",
			config: ProviderConfig{ClientID: "client", RedirectURL: "http://localhost/callback", DiscoveryURL: "http://example.com"},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret", DiscoveryURL: "http://example.com"},
			errMsg: "redirect URL is required",
		},
		{
			name:   "missing discovery URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret", RedirectURL: "http://localhost/callback"},
			errMsg: "discovery URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_PasswordSignIn(t *testing.T) {
	idp := newFakeIdP(t)
	provider := idp.provider(t)

	id, err := provider.PasswordSignIn(context.Background(), "admin@university.edu", "correct")
	require.NoError(t, err)
	assert.Equal(t, "sub-42", id.UserID)
	assert.Equal(t, "admin@university.edu", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, ProviderName, id.Provider)
	assert.False(t, id.IssuedAt.IsZero())

	again, err := provider.PasswordSignIn(context.Background(), "admin@university.edu", "correct")
	require.NoError(t, err)
	assert.False(t, id.Same(again))
}

func TestProvider_PasswordSignIn_ErrorKinds(t *testing.T) {
	idp := newFakeIdP(t)
	provider := idp.provider(t)

	_, err := provider.PasswordSignIn(context.Background(), "admin@university.edu", "wrong")
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	_, err = provider.PasswordSignIn(context.Background(), "", "")
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	idp.failCode = http.StatusBadGateway
	_, err = provider.PasswordSignIn(context.Background(), "admin@university.edu", "correct")
	assert.ErrorIs(t, err, domainauth.ErrNetwork)

	idp.srv.Close()
	_, err = provider.PasswordSignIn(context.Background(), "admin@university.edu", "correct")
	assert.ErrorIs(t, err, domainauth.ErrNetwork)
	assert.NotErrorIs(t, err, domainauth.ErrNotAuthorized)
}

func TestProvider_Begin(t *testing.T) {
	idp := newFakeIdP(t)
	provider := idp.provider(t)

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{RedirectURL: "/dashboard"})
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.Contains(t, authURL, idp.srv.URL+"/auth")
	assert.Contains(t, authURL, "client_id=test-client")
	assert.Contains(t, authURL, "state="+state)
	assert.Contains(t, authURL, "nonce="+nonce)

	_, _, _, err = provider.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")
}

func TestProvider_Exchange_ValidationErrors(t *testing.T) {
	provider := newFakeIdP(t).provider(t)

	tests := []struct {
		name   string
		input  ports.ExchangeInput
		errMsg string
	}{
		{name: "missing code", input: ports.ExchangeInput{State: "state", Nonce: "nonce"}, errMsg: "authorization code is required"},
		{name: "missing state", input: ports.ExchangeInput{Code: "code", Nonce: "nonce"}, errMsg: "state is required"},
		{name: "missing nonce", input: ports.ExchangeInput{Code: "code", State: "state"}, errMsg: "nonce is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.Exchange(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Exchange_RequiresIDTokenWithOpenIDScope(t *testing.T) {
	provider := newFakeIdP(t).provider(t)

	// The fake token endpoint never returns an id_token.
	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"})
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestGenerateRandomString(t *testing.T) {
	str1, err := generateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, str1, 16)

	str2, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, str2, 32)
	assert.NotEqual(t, str1, str2)
}

func TestGetIDTokenFromToken(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	idTok, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", idTok)

	_, err = getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"}))
	assert.ErrorContains(t, err, "missing id_token")

	_, err = getIDTokenFromToken(nil)
	assert.ErrorContains(t, err, "nil token")
}

func Test_fillFromUserInfoClaims(t *testing.T) {
	ui := &gooidc.UserInfo{Subject: "sub-abc", Email: "mail@example.com", EmailVerified: true}

	var f idFields
	fillFromUserInfoClaims(&f, ui)
	assert.Equal(t, "sub-abc", f.userID)
	assert.Equal(t, "mail@example.com", f.email)
	assert.True(t, f.emailVerified)

	keep := idFields{userID: "keep", email: "keep@example.com"}
	fillFromUserInfoClaims(&keep, ui)
	assert.Equal(t, "keep", keep.userID)
	assert.Equal(t, "keep@example.com", keep.email)
	assert.False(t, keep.emailVerified)

	fillFromUserInfoClaims(&keep, nil)
	assert.Equal(t, "keep", keep.userID)
}

func Test_mapIDTokenClaims(t *testing.T) {
	f := mapIDTokenClaims(idTokenClaims{Sub: "s", Email: "e@x.io", EmailVerified: true})
	assert.Equal(t, idFields{userID: "s", email: "e@x.io", emailVerified: true}, f)
}
