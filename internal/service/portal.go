package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/auy/thinkers-portal/internal/ports"
)

// PortalServiceOptions groups dependencies for PortalService.
type PortalServiceOptions struct {
	Provider  ports.AuthProvider     // Required: shared identity provider
	Allowlist Resolver               // Required: allowlist resolver
	State     ports.ClientStateStore // Required: per-client persisted state
	// DemoProfiles enables demo mode when set.
	DemoProfiles         DemoProfiles
	RequireVerifiedEmail bool
	// IdleTimeout evicts machines not used for this long. Zero disables eviction.
	IdleTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// PortalService keeps one SessionMachine per browser client. Machines are rebuilt from
// persisted client state after eviction or restart.
type PortalService struct {
	provider        ports.AuthProvider
	allowlist       Resolver
	state           ports.ClientStateStore
	demoProfiles    DemoProfiles
	requireVerified bool
	idleTimeout     time.Duration
	logger          *slog.Logger
	now             func() time.Time

	mu      sync.Mutex
	clients map[string]*clientEntry
}

type clientEntry struct {
	machine  *SessionMachine
	lastSeen time.Time
}

// ErrClientIDRequired is returned when a request carries no client id.
var ErrClientIDRequired = errors.New("client id is required")

// NewPortalService constructs a new PortalService.
func NewPortalService(opts PortalServiceOptions) *PortalService {
	if opts.Provider == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("AuthProvider is required")
	}
	if opts.Allowlist == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("Resolver is required")
	}
	if opts.State == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("ClientStateStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PortalService{
		provider:        opts.Provider,
		allowlist:       opts.Allowlist,
		state:           opts.State,
		demoProfiles:    opts.DemoProfiles,
		requireVerified: opts.RequireVerifiedEmail,
		idleTimeout:     opts.IdleTimeout,
		logger:          logger.With("component", "portal_service"),
		now:             now,
		clients:         map[string]*clientEntry{},
	}
}

// DemoEnabled reports whether demo sessions can be started.
func (p *PortalService) DemoEnabled() bool { return p.demoProfiles != nil }

// Session returns the started machine for clientID, creating it on first use, and picks up
// identity changes persisted since the last request.
func (p *PortalService) Session(ctx context.Context, clientID string) (*SessionMachine, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}

	p.mu.Lock()
	entry, ok := p.clients[clientID]
	if !ok {
		entry = &clientEntry{machine: p.newMachine(clientID)}
		p.clients[clientID] = entry
	}
	entry.lastSeen = p.now()
	m := entry.machine
	p.mu.Unlock()

	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	if err := m.Revalidate(ctx); err != nil {
		// Keep serving the last known state; the store may be briefly unavailable.
		p.logger.WarnContext(ctx, "revalidate session failed", "error", err)
	}
	return m, nil
}

func (p *PortalService) newMachine(clientID string) *SessionMachine {
	logger := p.logger.With("client", shortID(clientID))
	adapter := NewIdentityAdapter(IdentityAdapterOptions{
		Provider: p.provider,
		Store:    p.state.Identity(clientID),
		Logger:   logger,
	})
	return NewSessionMachine(SessionMachineOptions{
		Identity:             adapter,
		Allowlist:            p.allowlist,
		Demo:                 p.state.Demo(clientID),
		DemoProfiles:         p.demoProfiles,
		RequireVerifiedEmail: p.requireVerified,
		Logger:               logger,
	})
}

// Release closes and forgets the machine for clientID. Persisted state is kept.
func (p *PortalService) Release(clientID string) {
	p.mu.Lock()
	entry, ok := p.clients[clientID]
	delete(p.clients, clientID)
	p.mu.Unlock()
	if ok {
		entry.machine.Close()
	}
}

// Active reports the number of live machines.
func (p *PortalService) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// SweepIdle closes machines idle longer than the idle timeout and reports how many.
func (p *PortalService) SweepIdle(_ context.Context) (int, error) {
	if p.idleTimeout <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.idleTimeout)

	var evicted []*SessionMachine
	p.mu.Lock()
	for id, e := range p.clients {
		if e.lastSeen.Before(cutoff) {
			evicted = append(evicted, e.machine)
			delete(p.clients, id)
		}
	}
	p.mu.Unlock()

	for _, m := range evicted {
		m.Close()
	}
	return len(evicted), nil
}

// Close releases every machine.
func (p *PortalService) Close() {
	p.mu.Lock()
	clients := p.clients
	p.clients = map[string]*clientEntry{}
	p.mu.Unlock()
	for _, e := range clients {
		e.machine.Close()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
