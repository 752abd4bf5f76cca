// Package redis provides Redis-backed per-client state for the portal.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

const (
	defaultPrefix = "portal:"
	identityKey   = "identity:"
	demoKey       = "demo:"
)

var _ ports.ClientStateStore = (*ClientState)(nil)

// ClientState stores each client's provider identity and demo override in Redis.
// Identities expire with the token; demo overrides live for TTL.
type ClientState struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// ClientStateOptions tunes key layout and expiry.
type ClientStateOptions struct {
	// Prefix defaults to "portal:".
	Prefix string
	// TTL bounds demo overrides and identities without an expiry. Zero means no expiry.
	TTL time.Duration
}

// NewClientState creates a Redis-backed ClientStateStore.
func NewClientState(client redis.UniversalClient, opts ClientStateOptions) *ClientState {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ClientState{client: client, prefix: prefix, ttl: opts.TTL}
}

func (c *ClientState) Identity(clientID string) ports.IdentityStore {
	return &identityStore{state: c, key: c.prefix + identityKey + clientID}
}

func (c *ClientState) Demo(clientID string) ports.DemoStore {
	return &demoStore{state: c, key: c.prefix + demoKey + clientID}
}

type identityStore struct {
	state *ClientState
	key   string
}

func (s *identityStore) Load(ctx context.Context) (domainauth.Identity, error) {
	data, err := s.state.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Identity{}, ports.ErrNotFound
		}
		return domainauth.Identity{}, fmt.Errorf("redis get identity: %w", err)
	}

	var id domainauth.Identity
	if unmarshalErr := json.Unmarshal([]byte(data), &id); unmarshalErr != nil {
		return domainauth.Identity{}, fmt.Errorf("unmarshal identity: %w", unmarshalErr)
	}

	if !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt) {
		if clearErr := s.Clear(ctx); clearErr != nil {
			return domainauth.Identity{}, fmt.Errorf("cleanup expired identity: %w", clearErr)
		}
		return domainauth.Identity{}, ports.ErrNotFound
	}
	return id, nil
}

func (s *identityStore) Save(ctx context.Context, id domainauth.Identity) error {
	ttl := s.state.ttl
	if !id.ExpiresAt.IsZero() {
		ttl = time.Until(id.ExpiresAt)
		if ttl <= 0 {
			return errors.New("identity is expired")
		}
	}

	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return s.state.client.Set(ctx, s.key, data, ttl).Err()
}

func (s *identityStore) Clear(ctx context.Context) error {
	return s.state.client.Del(ctx, s.key).Err()
}

type demoStore struct {
	state *ClientState
	key   string
}

func (s *demoStore) Load(ctx context.Context) (domainauth.Role, error) {
	v, err := s.state.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrNotFound
		}
		return "", fmt.Errorf("redis get demo role: %w", err)
	}
	role, err := domainauth.ParseRole(v)
	if err != nil {
		// An unreadable override is treated as absent.
		_ = s.Clear(ctx)
		return "", ports.ErrNotFound
	}
	return role, nil
}

func (s *demoStore) Save(ctx context.Context, role domainauth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("save demo role %q: %w", role, domainauth.ErrUnknownRole)
	}
	return s.state.client.Set(ctx, s.key, string(role), s.state.ttl).Err()
}

func (s *demoStore) Clear(ctx context.Context) error {
	return s.state.client.Del(ctx, s.key).Err()
}
