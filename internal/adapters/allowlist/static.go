package allowlist

import (
	"context"
	"sort"
	"sync"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// StaticSource is an in-memory allowlist. Emails it does not hold are not listed.
type StaticSource struct {
	mu      sync.RWMutex
	entries map[string]domainauth.AllowlistEntry
}

var _ ports.AllowlistStore = (*StaticSource)(nil)

// NewStaticSource builds a source holding entries, keyed by normalized email.
func NewStaticSource(entries ...domainauth.AllowlistEntry) *StaticSource {
	s := &StaticSource{entries: make(map[string]domainauth.AllowlistEntry, len(entries))}
	for _, e := range entries {
		e.Email = domainauth.NormalizeEmail(e.Email)
		s.entries[e.Email] = e
	}
	return s
}

func (s *StaticSource) Lookup(_ context.Context, email string) (domainauth.AllowlistRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[domainauth.NormalizeEmail(email)]
	if !ok {
		return domainauth.AllowlistRecord{}, ports.ErrNotFound
	}
	return e.Record(), nil
}

// List returns entries ordered by email.
func (s *StaticSource) List(_ context.Context) ([]domainauth.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainauth.AllowlistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *StaticSource) Upsert(_ context.Context, entry domainauth.AllowlistEntry) error {
	entry.Email = domainauth.NormalizeEmail(entry.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Email] = entry
	return nil
}

func (s *StaticSource) Delete(_ context.Context, email string) (bool, error) {
	key := domainauth.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}
