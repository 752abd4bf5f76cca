package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	mockauth "github.com/auy/thinkers-portal/internal/mocks/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// failingIdentityStore wraps a MemoryIdentityStore with injectable failures.
type failingIdentityStore struct {
	mockauth.MemoryIdentityStore
	saveErr  error
	loadErr  error
	clearErr error
	clears   int
}

func (f *failingIdentityStore) Load(ctx context.Context) (domainauth.Identity, error) {
	if f.loadErr != nil {
		return domainauth.Identity{}, f.loadErr
	}
	return f.MemoryIdentityStore.Load(ctx)
}

func (f *failingIdentityStore) Save(ctx context.Context, id domainauth.Identity) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryIdentityStore.Save(ctx, id)
}

func (f *failingIdentityStore) Clear(ctx context.Context) error {
	f.clears++
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.MemoryIdentityStore.Clear(ctx)
}

func newTestAdapter(t *testing.T, store ports.IdentityStore) (*IdentityAdapter, *mockauth.MockAuthProvider) {
	t.Helper()
	provider := mockauth.NewMockAuthProvider()
	provider.Passwords["admin@university.edu"] = "secret"
	return NewIdentityAdapter(IdentityAdapterOptions{Provider: provider, Store: store}), provider
}

func TestIdentityAdapter_SubscribeFiresImmediately(t *testing.T) {
	adapter, _ := newTestAdapter(t, &mockauth.MemoryIdentityStore{})
	ctx := context.Background()

	var calls []*domainauth.Identity
	unsubscribe := adapter.Subscribe(ctx, func(_ context.Context, id *domainauth.Identity) {
		calls = append(calls, id)
	})
	defer unsubscribe()

	require.Len(t, calls, 1)
	assert.Nil(t, calls[0])
	assert.Equal(t, 1, adapter.Subscribers())
}

func TestIdentityAdapter_SignInNotifiesInOrder(t *testing.T) {
	adapter, _ := newTestAdapter(t, &mockauth.MemoryIdentityStore{})
	ctx := context.Background()

	var order []string
	un1 := adapter.Subscribe(ctx, func(_ context.Context, id *domainauth.Identity) {
		if id != nil {
			order = append(order, "first")
		}
	})
	un2 := adapter.Subscribe(ctx, func(_ context.Context, id *domainauth.Identity) {
		if id != nil {
			order = append(order, "second")
		}
	})
	defer un1()
	defer un2()

	id, err := adapter.SignInWithPassword(ctx, " Admin@University.edu ", "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "mock", id.Provider)

	current := adapter.Current()
	require.NotNil(t, current)
	assert.True(t, current.Same(id))
}

func TestIdentityAdapter_UnsubscribeIsIdempotent(t *testing.T) {
	adapter, _ := newTestAdapter(t, &mockauth.MemoryIdentityStore{})
	ctx := context.Background()

	calls := 0
	unsubscribe := adapter.Subscribe(ctx, func(context.Context, *domainauth.Identity) { calls++ })
	other := adapter.Subscribe(ctx, func(context.Context, *domainauth.Identity) {})
	defer other()

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, adapter.Subscribers())

	_, err := adapter.SignInWithPassword(ctx, "admin@university.edu", "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIdentityAdapter_InvalidCredentials(t *testing.T) {
	store := &mockauth.MemoryIdentityStore{}
	adapter, _ := newTestAdapter(t, store)

	_, err := adapter.SignInWithPassword(context.Background(), "admin@university.edu", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Nil(t, adapter.Current())

	_, loadErr := store.Load(context.Background())
	assert.ErrorIs(t, loadErr, ports.ErrNotFound)
}

func TestIdentityAdapter_ProviderErrorBecomesNetwork(t *testing.T) {
	adapter, provider := newTestAdapter(t, &mockauth.MemoryIdentityStore{})
	provider.PasswordSignInFunc = func(context.Context, string, string) (domainauth.Identity, error) {
		return domainauth.Identity{}, errors.New("dial tcp: connection refused")
	}

	_, err := adapter.SignInWithPassword(context.Background(), "admin@university.edu", "secret")
	assert.ErrorIs(t, err, domainauth.ErrNetwork)
}

func TestIdentityAdapter_SaveFailure(t *testing.T) {
	store := &failingIdentityStore{saveErr: errors.New("redis down")}
	adapter, _ := newTestAdapter(t, store)

	published := 0
	defer adapter.Subscribe(context.Background(), func(_ context.Context, id *domainauth.Identity) {
		if id != nil {
			published++
		}
	})()

	_, err := adapter.SignInWithPassword(context.Background(), "admin@university.edu", "secret")
	assert.ErrorIs(t, err, domainauth.ErrNetwork)
	assert.Zero(t, published)
	assert.Nil(t, adapter.Current())
}

func TestIdentityAdapter_SignOutAlwaysNotifies(t *testing.T) {
	store := &failingIdentityStore{clearErr: errors.New("redis down")}
	adapter, _ := newTestAdapter(t, store)
	ctx := context.Background()

	_, err := adapter.SignInWithPassword(ctx, "admin@university.edu", "secret")
	require.NoError(t, err)

	var last *domainauth.Identity
	notified := false
	defer adapter.Subscribe(ctx, func(_ context.Context, id *domainauth.Identity) {
		last = id
		notified = true
	})()
	notified = false

	err = adapter.SignOut(ctx)
	require.Error(t, err)
	assert.True(t, notified)
	assert.Nil(t, last)
	assert.Nil(t, adapter.Current())
}

func TestIdentityAdapter_Federated(t *testing.T) {
	adapter, provider := newTestAdapter(t, &mockauth.MemoryIdentityStore{})
	provider.FederatedEmail = "teacher@university.edu"
	ctx := context.Background()

	_, err := adapter.BeginFederated(ctx, "")
	require.Error(t, err)

	start, err := adapter.BeginFederated(ctx, "http://localhost:8080/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", start.AuthURL)
	assert.Equal(t, "state-1", start.State)
	assert.Equal(t, "nonce-1", start.Nonce)

	_, err = adapter.SignInWithFederated(ctx, ports.ExchangeInput{State: start.State, Nonce: start.Nonce})
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	_, err = adapter.SignInWithFederated(ctx, ports.ExchangeInput{Code: "code"})
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	id, err := adapter.SignInWithFederated(ctx, ports.ExchangeInput{Code: "code", State: start.State, Nonce: start.Nonce})
	require.NoError(t, err)
	assert.Equal(t, "teacher@university.edu", id.Email)
}

func TestIdentityAdapter_RestoreDoesNotNotify(t *testing.T) {
	store := &mockauth.MemoryIdentityStore{}
	ctx := context.Background()
	persisted := domainauth.Identity{UserID: "u1", Email: "admin@university.edu", IssuedAt: time.Unix(100, 0)}
	require.NoError(t, store.Save(ctx, persisted))

	adapter, _ := newTestAdapter(t, store)
	require.NoError(t, adapter.Restore(ctx))

	current := adapter.Current()
	require.NotNil(t, current)
	assert.True(t, current.Same(persisted))
}

func TestIdentityAdapter_Sync(t *testing.T) {
	store := &failingIdentityStore{}
	adapter, _ := newTestAdapter(t, store)
	ctx := context.Background()

	var events []*domainauth.Identity
	defer adapter.Subscribe(ctx, func(_ context.Context, id *domainauth.Identity) {
		events = append(events, id)
	})()
	events = nil

	// Unchanged: no notification.
	require.NoError(t, adapter.Sync(ctx))
	assert.Empty(t, events)

	// Signed in elsewhere.
	other := domainauth.Identity{UserID: "u2", Email: "teacher@university.edu", IssuedAt: time.Unix(200, 0)}
	require.NoError(t, store.MemoryIdentityStore.Save(ctx, other))
	require.NoError(t, adapter.Sync(ctx))
	require.Len(t, events, 1)
	require.NotNil(t, events[0])
	assert.True(t, events[0].Same(other))

	// Transient failure keeps the identity.
	store.loadErr = errors.New("timeout")
	require.Error(t, adapter.Sync(ctx))
	assert.NotNil(t, adapter.Current())
	store.loadErr = nil

	// Signed out or expired elsewhere.
	require.NoError(t, store.MemoryIdentityStore.Clear(ctx))
	require.NoError(t, adapter.Sync(ctx))
	require.Len(t, events, 2)
	assert.Nil(t, events[1])
	assert.Nil(t, adapter.Current())
}
