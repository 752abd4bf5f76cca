package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
	"github.com/auy/thinkers-portal/internal/ports"
)

// Resolver maps an email to its allowlist entry, or nil when access is denied.
type Resolver interface {
	Resolve(ctx context.Context, email string) *domainauth.AllowlistEntry
}

// DemoProfiles returns the synthetic profile for a demo role.
type DemoProfiles func(role domainauth.Role) (domainauth.UserProfile, bool)

// SessionMachineOptions groups dependencies for SessionMachine.
type SessionMachineOptions struct {
	Identity  *IdentityAdapter // Required: this client's identity adapter
	Allowlist Resolver         // Required: allowlist resolver
	Demo      ports.DemoStore  // Required: this client's demo override
	// DemoProfiles enables demo mode when set.
	DemoProfiles DemoProfiles
	// RequireVerifiedEmail denies identities whose email is not verified by the provider.
	RequireVerifiedEmail bool
	Logger               *slog.Logger
}

// SessionMachine owns one client's SessionState and drives it through the authentication
// lifecycle. Every change of identity takes a new generation; a resolution that completes
// after a newer one was initiated is discarded.
type SessionMachine struct {
	identity        *IdentityAdapter
	allowlist       Resolver
	demo            ports.DemoStore
	demoProfiles    DemoProfiles
	requireVerified bool
	logger          *slog.Logger

	startOnce   sync.Once
	startErr    error
	unsubscribe func()

	mu       sync.Mutex
	state    domainauth.SessionState
	gen      uint64
	demoRole *domainauth.Role // persisted override, as last read or written
	closed   bool
	outcomes map[outcomeKey]error
}

type outcomeKey struct {
	userID   string
	issuedAt int64
}

func keyOf(id domainauth.Identity) outcomeKey {
	return outcomeKey{userID: id.UserID, issuedAt: id.IssuedAt.UnixNano()}
}

// ErrSessionClosed is returned by a machine that was closed, usually by idle eviction. The
// client's next request is served by a fresh machine, so the request can be retried.
var ErrSessionClosed = &apperrors.AppError{
	Code:    apperrors.ErrCodeUnavailable,
	Message: "session was released; retry the request",
}

// maxOutcomes bounds the remembered sign-in outcomes.
const maxOutcomes = 16

// NewSessionMachine constructs a SessionMachine in the Initializing phase. Call Start.
func NewSessionMachine(opts SessionMachineOptions) *SessionMachine {
	if opts.Identity == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("IdentityAdapter is required")
	}
	if opts.Allowlist == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("Resolver is required")
	}
	if opts.Demo == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("DemoStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionMachine{
		identity:        opts.Identity,
		allowlist:       opts.Allowlist,
		demo:            opts.Demo,
		demoProfiles:    opts.DemoProfiles,
		requireVerified: opts.RequireVerifiedEmail,
		logger:          logger,
		state:           domainauth.Initial(),
		outcomes:        map[outcomeKey]error{},
	}
}

// Start reads the persisted demo override and provider identity and settles the initial
// state. It runs once; later calls return the first result.
func (m *SessionMachine) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		m.startErr = m.start(ctx)
	})
	return m.startErr
}

func (m *SessionMachine) start(ctx context.Context) error {
	role, err := m.demo.Load(ctx)
	switch {
	case err == nil:
		m.mu.Lock()
		m.demoRole = &role
		m.mu.Unlock()
	case errors.Is(err, ports.ErrNotFound):
	default:
		m.logger.WarnContext(ctx, "load demo override failed", "error", err)
	}

	if restoreErr := m.identity.Restore(ctx); restoreErr != nil {
		m.logger.WarnContext(ctx, "restore identity failed", "error", restoreErr)
	}

	unsub := m.identity.Subscribe(ctx, m.onIdentity)
	m.mu.Lock()
	m.unsubscribe = unsub
	m.mu.Unlock()
	return nil
}

// Close releases the identity subscription. The machine ignores provider events afterwards.
func (m *SessionMachine) Close() {
	m.mu.Lock()
	m.closed = true
	unsub := m.unsubscribe
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Snapshot returns a copy of the current state.
func (m *SessionMachine) Snapshot() domainauth.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Revalidate picks up identity changes persisted outside this machine, including expiry.
// A real identity that appeared meanwhile replaces a demo session.
func (m *SessionMachine) Revalidate(ctx context.Context) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil
	}
	return m.identity.Sync(ctx)
}

// onIdentity is the provider subscription.
func (m *SessionMachine) onIdentity(ctx context.Context, id *domainauth.Identity) {
	if id == nil {
		m.onSignedOut(ctx)
		return
	}
	m.resolveIdentity(ctx, *id)
}

// onSignedOut settles the state after the provider identity went away. A notification that
// arrives after a newer sign-in already landed is ignored.
func (m *SessionMachine) onSignedOut(ctx context.Context) {
	var (
		demoGen  uint64
		demoRole *domainauth.Role
	)
	m.identity.IfCurrent(nil, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}

		switch m.state.Phase {
		case domainauth.PhaseInitializing:
			m.gen++
			if m.demoRole != nil && m.demoProfiles != nil {
				demoGen, demoRole = m.gen, m.demoRole
				m.state = domainauth.SessionState{Phase: domainauth.PhaseResolving, Loading: true, IsDemo: true}
				return
			}
			m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}

		case domainauth.PhaseDenied:
			m.gen++
			m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}.WithError(domainauth.KindNotAuthorized)

		case domainauth.PhaseUnauthenticated:
			// nothing to do

		default:
			if m.state.IsDemo || m.state.Identity == nil {
				// Demo sessions and pending sign-in attempts have no provider identity to lose.
				return
			}
			m.gen++
			m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}
		}
	})
	if demoRole != nil {
		m.resolveDemo(ctx, demoGen, *demoRole)
	}
}

// resolveIdentity moves to Resolving for id, checks the allowlist outside the lock and
// applies the result if no newer transition started meanwhile.
func (m *SessionMachine) resolveIdentity(ctx context.Context, id domainauth.Identity) {
	var (
		g         uint64
		entered   bool
		clearDemo bool
	)
	// Entering Resolving is tied to id still being current, so a late notification for an
	// identity that was already signed out or replaced cannot resurrect it.
	m.identity.IfCurrent(&id, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed || (m.state.Identity != nil && m.state.Identity.Same(id)) {
			return
		}
		m.gen++
		g = m.gen
		m.state = domainauth.SessionState{
			Phase:    domainauth.PhaseResolving,
			Identity: cloneIdentity(&id),
			Loading:  true,
		}
		clearDemo = m.demoRole != nil
		m.demoRole = nil
		entered = true
	})
	if !entered {
		return
	}

	if clearDemo {
		if err := m.demo.Clear(ctx); err != nil {
			m.logger.WarnContext(ctx, "clear demo override failed", "error", err)
		}
	}

	var entry *domainauth.AllowlistEntry
	if !m.requireVerified || id.EmailVerified {
		entry = m.allowlist.Resolve(ctx, id.Email)
	} else {
		m.logger.InfoContext(ctx, "identity denied: email not verified", "provider", id.Provider)
	}

	m.mu.Lock()
	if g != m.gen || m.closed {
		m.mu.Unlock()
		m.logger.DebugContext(ctx, "discarding stale resolution", "generation", g)
		return
	}
	if entry != nil {
		profile := entry.Profile(&id)
		m.state = domainauth.SessionState{
			Phase:    domainauth.PhaseAuthenticated,
			Identity: cloneIdentity(&id),
			Profile:  &profile,
		}
		m.recordLocked(id, nil)
		m.mu.Unlock()
		m.logger.InfoContext(ctx, "session authenticated", "role", profile.Role, "provider", id.Provider)
		return
	}

	m.state = domainauth.SessionState{
		Phase:    domainauth.PhaseDenied,
		Identity: cloneIdentity(&id),
		Loading:  true,
	}.WithError(domainauth.KindNotAuthorized)
	m.recordLocked(id, domainauth.ErrNotAuthorized)
	m.mu.Unlock()

	// Unwind the provider session; the sign-out notification settles Denied into Unauthenticated.
	if err := m.identity.SignOut(ctx); err != nil {
		m.logger.WarnContext(ctx, "forced sign-out failed", "error", err)
	}

	m.mu.Lock()
	if m.state.Phase == domainauth.PhaseDenied && m.gen == g {
		m.gen++
		m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}.WithError(domainauth.KindNotAuthorized)
	}
	m.mu.Unlock()
}

func (m *SessionMachine) recordLocked(id domainauth.Identity, err error) {
	if len(m.outcomes) >= maxOutcomes {
		clear(m.outcomes)
	}
	m.outcomes[keyOf(id)] = err
}

// outcome reports how the resolution of id ended. A resolution that was superseded, or
// never ran, reports nil; callers read Snapshot for the authoritative state.
func (m *SessionMachine) outcome(id domainauth.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err, ok := m.outcomes[keyOf(id)]
	delete(m.outcomes, keyOf(id))
	if !ok {
		return nil
	}
	return err
}

func (m *SessionMachine) resolveDemo(ctx context.Context, g uint64, role domainauth.Role) {
	profile, ok := m.demoProfiles(role)

	m.mu.Lock()
	defer m.mu.Unlock()
	if g != m.gen || m.closed {
		return
	}
	if !ok {
		m.demoRole = nil
		m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}
		return
	}
	m.state = domainauth.SessionState{
		Phase:   domainauth.PhaseAuthenticated,
		Profile: &profile,
		IsDemo:  true,
	}
}

// beginAttempt enters Resolving for an explicit login attempt and abandons any demo session.
func (m *SessionMachine) beginAttempt(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrSessionClosed
	}
	m.gen++
	g := m.gen
	m.state = domainauth.SessionState{Phase: domainauth.PhaseResolving, Loading: true}
	clearDemo := m.demoRole != nil
	m.demoRole = nil
	m.mu.Unlock()

	if clearDemo {
		if err := m.demo.Clear(ctx); err != nil {
			m.logger.WarnContext(ctx, "clear demo override failed", "error", err)
		}
	}
	return g, nil
}

// acceptAttempt reports whether attempt g is still the latest transition. It is checked by
// the identity adapter before a completed sign-in is stored, so an attempt overtaken by a
// logout or a newer login while the provider call was running never becomes current.
func (m *SessionMachine) acceptAttempt(g uint64) func() bool {
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return g == m.gen && !m.closed
	}
}

// failAttempt settles a failed attempt in Unauthenticated with the error's message and
// signs out any identity left over from before the attempt.
func (m *SessionMachine) failAttempt(ctx context.Context, g uint64, err error) error {
	if errors.Is(err, errSignInSuperseded) {
		m.logger.DebugContext(ctx, "discarding superseded sign-in", "generation", g)
		return nil
	}
	kind := domainauth.KindOf(err)
	if kind == domainauth.KindNone {
		kind = domainauth.KindNetwork
		err = domainauth.NewAuthError(kind, err)
	}

	m.mu.Lock()
	current := g == m.gen
	if current {
		m.gen++
		m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}
		if kind != domainauth.KindPopupCancelled {
			m.state = m.state.WithError(kind)
		}
	}
	m.mu.Unlock()

	if current && m.identity.Current() != nil {
		if signOutErr := m.identity.SignOut(ctx); signOutErr != nil {
			m.logger.WarnContext(ctx, "sign-out after failed attempt failed", "error", signOutErr)
		}
	}
	m.logger.InfoContext(ctx, "login attempt failed", "kind", kind)
	return err
}

// LoginWithPassword signs in with email and password and resolves the result.
// A denied email is signed back out and reported as domainauth.ErrNotAuthorized.
func (m *SessionMachine) LoginWithPassword(ctx context.Context, email, password string) error {
	g, err := m.beginAttempt(ctx)
	if err != nil {
		return err
	}
	id, err := m.identity.signInWithPassword(ctx, email, password, m.acceptAttempt(g))
	if err != nil {
		return m.failAttempt(ctx, g, err)
	}
	return m.outcome(id)
}

// BeginFederatedLogin starts the provider redirect flow. The session is unchanged until the
// flow completes or is cancelled.
func (m *SessionMachine) BeginFederatedLogin(ctx context.Context, redirectURL string) (FederatedStart, error) {
	return m.identity.BeginFederated(ctx, redirectURL)
}

// CompleteFederatedLogin finishes the provider redirect flow and resolves the result.
func (m *SessionMachine) CompleteFederatedLogin(ctx context.Context, in ports.ExchangeInput) error {
	g, err := m.beginAttempt(ctx)
	if err != nil {
		return err
	}
	id, err := m.identity.signInWithFederated(ctx, in, m.acceptAttempt(g))
	if err != nil {
		return m.failAttempt(ctx, g, err)
	}
	return m.outcome(id)
}

// CancelFederatedLogin records that the user abandoned the provider flow. An active
// session is left alone; otherwise the machine settles quietly in Unauthenticated.
func (m *SessionMachine) CancelFederatedLogin(ctx context.Context) error {
	m.mu.Lock()
	active := m.state.Phase == domainauth.PhaseAuthenticated || m.state.Identity != nil || m.state.IsDemo
	if !active && !m.closed {
		m.gen++
		m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}
	}
	m.mu.Unlock()
	m.logger.DebugContext(ctx, "federated login cancelled", "session_active", active)
	return domainauth.ErrPopupCancelled
}

// DemoLogin starts a demo session for role. It is refused while a real identity is active.
func (m *SessionMachine) DemoLogin(ctx context.Context, role domainauth.Role) error {
	if m.demoProfiles == nil {
		return apperrors.Forbidden("demo mode is disabled")
	}
	if !role.Valid() {
		return apperrors.ValidationField("role", fmt.Sprintf("unknown role %q", role))
	}
	if m.identity.Current() != nil {
		return domainauth.ErrRealSessionActive
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrSessionClosed
	}
	m.gen++
	g := m.gen
	m.state = domainauth.SessionState{Phase: domainauth.PhaseResolving, Loading: true, IsDemo: true}
	m.demoRole = &role
	m.mu.Unlock()

	if err := m.demo.Save(ctx, role); err != nil {
		m.mu.Lock()
		if g == m.gen {
			m.gen++
			m.demoRole = nil
			m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}.WithError(domainauth.KindNetwork)
		}
		m.mu.Unlock()
		return domainauth.NewAuthError(domainauth.KindNetwork, fmt.Errorf("save demo override: %w", err))
	}

	m.resolveDemo(ctx, g, role)
	m.logger.InfoContext(ctx, "demo session started", "role", role)
	return nil
}

// Logout ends the session. Demo sessions only clear the override; real sessions sign out
// of the provider. Logging out while signed out is a no-op.
func (m *SessionMachine) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.closed || (m.state.Phase == domainauth.PhaseUnauthenticated && m.demoRole == nil) {
		m.mu.Unlock()
		return nil
	}
	demo := m.state.IsDemo || m.demoRole != nil
	m.gen++
	m.state = domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}
	m.demoRole = nil
	m.mu.Unlock()

	if demo {
		if err := m.demo.Clear(ctx); err != nil {
			return fmt.Errorf("clear demo override: %w", err)
		}
		m.logger.InfoContext(ctx, "demo session ended")
		return nil
	}

	if err := m.identity.SignOut(ctx); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "session signed out")
	return nil
}
