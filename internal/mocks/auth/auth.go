package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider     = (*MockAuthProvider)(nil)
	_ ports.AllowlistSource  = (*StaticAllowlist)(nil)
	_ ports.IdentityStore    = (*MemoryIdentityStore)(nil)
	_ ports.DemoStore        = (*MemoryDemoStore)(nil)
	_ ports.ClientStateStore = (*MemoryClientState)(nil)
)

// ErrNotFound is returned by mocks when an entity is not present.
var ErrNotFound = ports.ErrNotFound

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
// Passwords maps email to the accepted password; FederatedEmail is returned by Exchange.
type MockAuthProvider struct {
	PasswordSignInFunc func(ctx context.Context, email, password string) (domainauth.Identity, error)
	BeginFunc          func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc       func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL        string
	Passwords      map[string]string
	FederatedEmail string

	mu        sync.Mutex
	callCount int
	signIns   int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:        "https://mock-idp/auth",
		Passwords:      map[string]string{},
		FederatedEmail: "mock.user@example.com",
	}
}

func (m *MockAuthProvider) Name() string { return "mock" }

// SignIns reports how many identities the provider issued.
func (m *MockAuthProvider) SignIns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signIns
}

func (m *MockAuthProvider) issue(email string) domainauth.Identity {
	m.mu.Lock()
	m.signIns++
	n := m.signIns
	m.mu.Unlock()
	now := time.Now()
	return domainauth.Identity{
		UserID:        "mock-" + domainauth.NormalizeEmail(email),
		Email:         email,
		EmailVerified: true,
		Provider:      m.Name(),
		IssuedAt:      now.Add(time.Duration(n) * time.Nanosecond),
		ExpiresAt:     now.Add(time.Hour),
	}
}

func (m *MockAuthProvider) PasswordSignIn(ctx context.Context, email, password string) (domainauth.Identity, error) {
	if m.PasswordSignInFunc != nil {
		return m.PasswordSignInFunc(ctx, email, password)
	}
	m.mu.Lock()
	want, ok := m.Passwords[domainauth.NormalizeEmail(email)]
	m.mu.Unlock()
	if !ok || want != password {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials, nil)
	}
	return m.issue(email), nil
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	email := m.FederatedEmail
	if email == "" {
		email = "mock.user@example.com"
	}
	return m.issue(email), nil
}

// StaticAllowlist is a map-backed allowlist. LookupFunc, when set, replaces the map.
type StaticAllowlist struct {
	LookupFunc func(ctx context.Context, email string) (domainauth.AllowlistRecord, error)

	mu      sync.Mutex
	records map[string]domainauth.AllowlistRecord
	calls   int
}

// NewStaticAllowlist builds an allowlist from records keyed by their email.
func NewStaticAllowlist(records ...domainauth.AllowlistRecord) *StaticAllowlist {
	s := &StaticAllowlist{records: make(map[string]domainauth.AllowlistRecord, len(records))}
	for _, r := range records {
		s.records[domainauth.NormalizeEmail(r.Email)] = r
	}
	return s
}

// Put adds or replaces a record.
func (s *StaticAllowlist) Put(r domainauth.AllowlistRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]domainauth.AllowlistRecord{}
	}
	s.records[domainauth.NormalizeEmail(r.Email)] = r
}

// Remove drops a record.
func (s *StaticAllowlist) Remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, domainauth.NormalizeEmail(email))
}

// Calls reports how many lookups were made.
func (s *StaticAllowlist) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticAllowlist) Lookup(ctx context.Context, email string) (domainauth.AllowlistRecord, error) {
	s.mu.Lock()
	s.calls++
	fn := s.LookupFunc
	rec, ok := s.records[domainauth.NormalizeEmail(email)]
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, email)
	}
	if !ok {
		return domainauth.AllowlistRecord{}, ErrNotFound
	}
	return rec, nil
}

// MemoryIdentityStore is an in-memory IdentityStore for unit tests.
type MemoryIdentityStore struct {
	mu sync.Mutex
	id *domainauth.Identity
}

func (m *MemoryIdentityStore) Load(_ context.Context) (domainauth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == nil {
		return domainauth.Identity{}, ErrNotFound
	}
	return *m.id, nil
}

func (m *MemoryIdentityStore) Save(_ context.Context, id domainauth.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = &id
	return nil
}

func (m *MemoryIdentityStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = nil
	return nil
}

// MemoryDemoStore is an in-memory DemoStore that counts writes.
type MemoryDemoStore struct {
	mu     sync.Mutex
	role   *domainauth.Role
	Writes int
}

func (m *MemoryDemoStore) Load(_ context.Context) (domainauth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.role == nil {
		return "", ErrNotFound
	}
	return *m.role, nil
}

func (m *MemoryDemoStore) Save(_ context.Context, role domainauth.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.role = &role
	m.Writes++
	return nil
}

func (m *MemoryDemoStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.role = nil
	m.Writes++
	return nil
}

// Stored returns the persisted role, if any.
func (m *MemoryDemoStore) Stored() (domainauth.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.role == nil {
		return "", false
	}
	return *m.role, true
}

// MemoryClientState hands out one identity and demo store per client id.
type MemoryClientState struct {
	mu         sync.Mutex
	identities map[string]*MemoryIdentityStore
	demos      map[string]*MemoryDemoStore
}

// NewMemoryClientState creates an empty MemoryClientState.
func NewMemoryClientState() *MemoryClientState {
	return &MemoryClientState{
		identities: map[string]*MemoryIdentityStore{},
		demos:      map[string]*MemoryDemoStore{},
	}
}

func (m *MemoryClientState) Identity(clientID string) ports.IdentityStore {
	return m.IdentityFor(clientID)
}

func (m *MemoryClientState) Demo(clientID string) ports.DemoStore {
	return m.DemoFor(clientID)
}

// IdentityFor returns the concrete store for assertions.
func (m *MemoryClientState) IdentityFor(clientID string) *MemoryIdentityStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.identities[clientID]
	if !ok {
		s = &MemoryIdentityStore{}
		m.identities[clientID] = s
	}
	return s
}

// DemoFor returns the concrete store for assertions.
func (m *MemoryClientState) DemoFor(clientID string) *MemoryDemoStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.demos[clientID]
	if !ok {
		s = &MemoryDemoStore{}
		m.demos[clientID] = s
	}
	return s
}
