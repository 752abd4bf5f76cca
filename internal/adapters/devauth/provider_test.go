package devauth

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(b)
}

func TestProvider_PasswordSignIn(t *testing.T) {
	prov, err := NewProvider(Config{Accounts: map[string]string{"Admin@University.edu": mustHash(t, "s3cret")}})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}

	id, err := prov.PasswordSignIn(context.Background(), " admin@university.edu", "s3cret")
	if err != nil {
		t.Fatalf("PasswordSignIn error: %v", err)
	}
	if id.Email != "admin@university.edu" || id.Provider != ProviderName || !id.EmailVerified {
		t.Fatalf("unexpected identity: %+v", id)
	}

	again, err := prov.PasswordSignIn(context.Background(), "admin@university.edu", "s3cret")
	if err != nil {
		t.Fatalf("PasswordSignIn error: %v", err)
	}
	if id.Same(again) {
		t.Fatal("two sign-ins must produce distinct identities")
	}

	_, err = prov.PasswordSignIn(context.Background(), "admin@university.edu", "wrong")
	if domainauth.KindOf(err) != domainauth.KindInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	_, err = prov.PasswordSignIn(context.Background(), "nobody@university.edu", "s3cret")
	if domainauth.KindOf(err) != domainauth.KindInvalidCredentials {
		t.Fatalf("expected invalid credentials for unknown account, got %v", err)
	}
}

func TestProvider_BeginAndExchange(t *testing.T) {
	prov, err := NewProvider(Config{FederatedEmail: "Teacher@University.edu"})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	url, state, nonce, err := prov.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	if err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if !strings.HasPrefix(url, "/auth/callback?") {
		t.Fatalf("unexpected authURL: %s", url)
	}
	if state == "" || nonce == "" {
		t.Fatal("state and nonce should be generated")
	}
	id, err := prov.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	if err != nil {
		t.Fatalf("Exchange error: %v", err)
	}
	if id.Email != "teacher@university.edu" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
	if _, err := NewProvider(Config{Accounts: map[string]string{"a@b.io": "not-a-hash"}}); err == nil {
		t.Fatal("expected error for invalid hash")
	}
	prov, err := NewProvider(Config{Accounts: map[string]string{"a@b.io": mustHash(t, "x")}})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	if _, _, _, err := prov.Begin(context.Background(), ports.BeginInput{}); err == nil {
		t.Fatal("Begin should fail without a federated email")
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("pw")) != nil {
		t.Fatal("hash does not verify")
	}
	if _, err := HashPassword("  "); err == nil {
		t.Fatal("expected error for blank password")
	}
}
