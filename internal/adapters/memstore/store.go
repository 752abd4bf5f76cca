// Package memstore keeps per-client session state in process memory.
// It backs single-instance deployments that run without Redis.
package memstore

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

var _ ports.ClientStateStore = (*Store)(nil)

type identityEntry struct {
	id        domainauth.Identity
	expiresAt time.Time
}

type demoEntry struct {
	role      domainauth.Role
	expiresAt time.Time
}

// Store is an in-memory ClientStateStore. The zero value is not usable; call New.
type Store struct {
	mu         sync.Mutex
	identities map[string]identityEntry
	demos      map[string]demoEntry
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Store. A zero ttl keeps demo overrides until cleared.
func New(ttl time.Duration) *Store {
	return &Store{
		identities: map[string]identityEntry{},
		demos:      map[string]demoEntry{},
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *Store) Identity(clientID string) ports.IdentityStore {
	return identityStore{s: s, clientID: clientID}
}

func (s *Store) Demo(clientID string) ports.DemoStore {
	return demoStore{s: s, clientID: clientID}
}

func (s *Store) expiry(explicit time.Time) time.Time {
	if !explicit.IsZero() {
		return explicit
	}
	if s.ttl > 0 {
		return s.now().Add(s.ttl)
	}
	return time.Time{}
}

func (s *Store) expired(at time.Time) bool {
	return !at.IsZero() && !s.now().Before(at)
}

// Sweep drops expired entries and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.identities {
		if s.expired(e.expiresAt) {
			delete(s.identities, k)
			n++
		}
	}
	for k, e := range s.demos {
		if s.expired(e.expiresAt) {
			delete(s.demos, k)
			n++
		}
	}
	return n
}

// Len reports the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identities) + len(s.demos)
}

type identityStore struct {
	s        *Store
	clientID string
}

func (i identityStore) Load(_ context.Context) (domainauth.Identity, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	e, ok := i.s.identities[i.clientID]
	if !ok {
		return domainauth.Identity{}, ports.ErrNotFound
	}
	if i.s.expired(e.expiresAt) {
		delete(i.s.identities, i.clientID)
		return domainauth.Identity{}, ports.ErrNotFound
	}
	return e.id, nil
}

func (i identityStore) Save(_ context.Context, id domainauth.Identity) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	i.s.identities[i.clientID] = identityEntry{id: id, expiresAt: i.s.expiry(id.ExpiresAt)}
	return nil
}

func (i identityStore) Clear(_ context.Context) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	delete(i.s.identities, i.clientID)
	return nil
}

type demoStore struct {
	s        *Store
	clientID string
}

func (d demoStore) Load(_ context.Context) (domainauth.Role, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	e, ok := d.s.demos[d.clientID]
	if !ok {
		return "", ports.ErrNotFound
	}
	if d.s.expired(e.expiresAt) {
		delete(d.s.demos, d.clientID)
		return "", ports.ErrNotFound
	}
	return e.role, nil
}

func (d demoStore) Save(_ context.Context, role domainauth.Role) error {
	if !role.Valid() {
		return domainauth.ErrUnknownRole
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.demos[d.clientID] = demoEntry{role: role, expiresAt: d.s.expiry(time.Time{})}
	return nil
}

func (d demoStore) Clear(_ context.Context) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	delete(d.s.demos, d.clientID)
	return nil
}
