package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
	"github.com/auy/thinkers-portal/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestClientState_IdentityRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	state := NewClientState(client, ClientStateOptions{TTL: time.Hour})
	ctx := context.Background()
	clientID := uuid.NewString()
	store := state.Identity(clientID)

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ports.ErrNotFound)

	id := domainauth.Identity{
		UserID:    "sub-1",
		Email:     "student@university.edu",
		Provider:  "oidc",
		IssuedAt:  time.Now().UTC().Truncate(time.Millisecond),
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, store.Save(ctx, id))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, id.Same(got))
	assert.WithinDuration(t, id.ExpiresAt, got.ExpiresAt, time.Second)

	ttl, err := client.TTL(ctx, "portal:identity:"+clientID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Minute)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestClientState_ExpiredIdentityRejected(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewClientState(client, ClientStateOptions{}).Identity(uuid.NewString())
	err := store.Save(context.Background(), domainauth.Identity{
		UserID:    "sub-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	assert.Error(t, err)
}

func TestClientState_DemoRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	state := NewClientState(client, ClientStateOptions{Prefix: "test:", TTL: time.Hour})
	ctx := context.Background()
	clientID := uuid.NewString()
	store := state.Demo(clientID)

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ports.ErrNotFound)

	require.NoError(t, store.Save(ctx, domainauth.RoleTeacher))
	raw, err := client.Get(ctx, "test:demo:"+clientID).Result()
	require.NoError(t, err)
	assert.Equal(t, "teacher", raw)

	role, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTeacher, role)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestClientState_DemoUnknownRole(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	state := NewClientState(client, ClientStateOptions{})
	ctx := context.Background()
	clientID := uuid.NewString()

	require.NoError(t, client.Set(ctx, "portal:demo:"+clientID, "superuser", 0).Err())

	_, err := state.Demo(clientID).Load(ctx)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	exists, err := client.Exists(ctx, "portal:demo:"+clientID).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	assert.Error(t, state.Demo(clientID).Save(ctx, domainauth.Role("superuser")))
}

func TestClientState_ClientsAreIsolated(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	state := NewClientState(client, ClientStateOptions{TTL: time.Hour})
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	require.NoError(t, state.Demo(a).Save(ctx, domainauth.RoleAdmin))
	_, err := state.Demo(b).Load(ctx)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
