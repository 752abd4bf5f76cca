package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

// IdentityListener receives the current provider identity, or nil after sign-out.
type IdentityListener func(ctx context.Context, id *domainauth.Identity)

// IdentityAdapterOptions groups dependencies for IdentityAdapter.
type IdentityAdapterOptions struct {
	Provider ports.AuthProvider  // Required: shared identity provider
	Store    ports.IdentityStore // Required: this client's persisted identity
	Logger   *slog.Logger        // Optional: structured logger
}

// IdentityAdapter is one client's view of the identity provider. It owns the client's
// current identity and notifies subscribers synchronously, in subscription order, on every
// sign-in and sign-out.
type IdentityAdapter struct {
	provider ports.AuthProvider
	store    ports.IdentityStore
	logger   *slog.Logger

	mu      sync.Mutex
	current *domainauth.Identity
	version uint64
	subs    []subscription
	nextSub uint64
}

type subscription struct {
	id uint64
	fn IdentityListener
}

// NewIdentityAdapter constructs an IdentityAdapter.
func NewIdentityAdapter(opts IdentityAdapterOptions) *IdentityAdapter {
	if opts.Provider == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("AuthProvider is required")
	}
	if opts.Store == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("IdentityStore is required")
	}
	return &IdentityAdapter{provider: opts.Provider, store: opts.Store, logger: opts.Logger}
}

// Restore loads the persisted identity without notifying subscribers.
func (a *IdentityAdapter) Restore(ctx context.Context) error {
	id, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load identity: %w", err)
	}
	a.mu.Lock()
	a.current = &id
	a.version++
	a.mu.Unlock()
	return nil
}

// Current returns a copy of the current identity, or nil.
func (a *IdentityAdapter) Current() *domainauth.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneIdentity(a.current)
}

// Subscribe registers fn and immediately calls it with the current identity.
// The returned function removes the subscription; calling it more than once is safe.
func (a *IdentityAdapter) Subscribe(ctx context.Context, fn IdentityListener) (unsubscribe func()) {
	a.mu.Lock()
	a.nextSub++
	subID := a.nextSub
	a.subs = append(a.subs, subscription{id: subID, fn: fn})
	current := cloneIdentity(a.current)
	a.mu.Unlock()

	fn(ctx, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			for i, s := range a.subs {
				if s.id == subID {
					a.subs = append(a.subs[:i:i], a.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers reports the number of active subscriptions.
func (a *IdentityAdapter) Subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subs)
}

// SignInWithPassword authenticates with email and password.
// Failures are *domainauth.AuthError of kind InvalidCredentials or NetworkError.
func (a *IdentityAdapter) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error) {
	return a.signInWithPassword(ctx, email, password, nil)
}

func (a *IdentityAdapter) signInWithPassword(
	ctx context.Context,
	email, password string,
	accept func() bool,
) (domainauth.Identity, error) {
	id, err := a.provider.PasswordSignIn(ctx, domainauth.NormalizeEmail(email), password)
	if err != nil {
		return domainauth.Identity{}, asAuthError(err)
	}
	return a.signedIn(ctx, id, accept)
}

// FederatedStart carries what a caller needs to send the user to the provider.
type FederatedStart struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginFederated starts the provider redirect flow.
func (a *IdentityAdapter) BeginFederated(ctx context.Context, redirectURL string) (FederatedStart, error) {
	if redirectURL == "" {
		return FederatedStart{}, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := a.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return FederatedStart{}, asAuthError(fmt.Errorf("begin auth flow: %w", err))
	}
	return FederatedStart{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// SignInWithFederated completes the provider redirect flow.
func (a *IdentityAdapter) SignInWithFederated(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	return a.signInWithFederated(ctx, in, nil)
}

func (a *IdentityAdapter) signInWithFederated(
	ctx context.Context,
	in ports.ExchangeInput,
	accept func() bool,
) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials,
			errors.New("authorization code is required"))
	}
	if in.State == "" || in.Nonce == "" {
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindInvalidCredentials,
			errors.New("state and nonce are required"))
	}
	id, err := a.provider.Exchange(ctx, in)
	if err != nil {
		return domainauth.Identity{}, asAuthError(err)
	}
	return a.signedIn(ctx, id, accept)
}

// errSignInSuperseded is returned when accept rejected a completed sign-in.
var errSignInSuperseded = errors.New("sign-in superseded")

// signedIn persists id and makes it current. The store write and the swap happen under the
// adapter lock, after accept (when set) agreed, so a sign-out that started meanwhile is
// either fully before or fully after it.
func (a *IdentityAdapter) signedIn(
	ctx context.Context,
	id domainauth.Identity,
	accept func() bool,
) (domainauth.Identity, error) {
	a.mu.Lock()
	if accept != nil && !accept() {
		a.mu.Unlock()
		return domainauth.Identity{}, errSignInSuperseded
	}
	if err := a.store.Save(ctx, id); err != nil {
		a.mu.Unlock()
		return domainauth.Identity{}, domainauth.NewAuthError(domainauth.KindNetwork, fmt.Errorf("save identity: %w", err))
	}
	subs := a.swapLocked(&id)
	a.mu.Unlock()

	a.notify(ctx, subs, &id)
	return id, nil
}

// SignOut forgets the current identity and notifies subscribers. Subscribers are notified
// even when clearing the persisted identity fails.
func (a *IdentityAdapter) SignOut(ctx context.Context) error {
	a.mu.Lock()
	clearErr := a.store.Clear(ctx)
	subs := a.swapLocked(nil)
	a.mu.Unlock()

	if clearErr != nil && a.logger != nil {
		a.logger.WarnContext(ctx, "clear persisted identity failed", "error", clearErr)
	}
	a.notify(ctx, subs, nil)
	if clearErr != nil {
		return fmt.Errorf("clear identity: %w", clearErr)
	}
	return nil
}

// Sync reconciles the current identity with the persisted one and notifies subscribers
// when it changed elsewhere (another instance, or expiry). Transient store failures
// leave the current identity untouched.
func (a *IdentityAdapter) Sync(ctx context.Context) error {
	a.mu.Lock()
	seen := a.version
	a.mu.Unlock()

	var next *domainauth.Identity
	id, err := a.store.Load(ctx)
	switch {
	case err == nil:
		next = &id
	case errors.Is(err, ports.ErrNotFound):
	default:
		return fmt.Errorf("load identity: %w", err)
	}

	a.mu.Lock()
	changed := a.version == seen && !sameIdentity(a.current, next)
	a.mu.Unlock()
	if !changed {
		return nil
	}
	a.publish(ctx, next, &seen)
	return nil
}

// publish swaps the current identity and fans out to subscribers. When ifVersion is set the
// swap only happens if no other change landed since that version.
func (a *IdentityAdapter) publish(ctx context.Context, id *domainauth.Identity, ifVersion *uint64) {
	a.mu.Lock()
	if ifVersion != nil && a.version != *ifVersion {
		a.mu.Unlock()
		return
	}
	subs := a.swapLocked(id)
	a.mu.Unlock()

	a.notify(ctx, subs, id)
}

func (a *IdentityAdapter) swapLocked(id *domainauth.Identity) []subscription {
	a.current = cloneIdentity(id)
	a.version++
	subs := make([]subscription, len(a.subs))
	copy(subs, a.subs)
	return subs
}

func (a *IdentityAdapter) notify(ctx context.Context, subs []subscription, id *domainauth.Identity) {
	for _, s := range subs {
		s.fn(ctx, cloneIdentity(id))
	}
}

// IfCurrent runs fn while id (nil for signed out) is still the current identity. The adapter
// lock is held, so no sign-in or sign-out lands while fn runs; fn must not call back into the
// adapter. It reports whether fn ran.
func (a *IdentityAdapter) IfCurrent(id *domainauth.Identity, fn func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !sameIdentity(a.current, id) {
		return false
	}
	fn()
	return true
}

func asAuthError(err error) error {
	var ae *domainauth.AuthError
	if errors.As(err, &ae) {
		return err
	}
	return domainauth.NewAuthError(domainauth.KindNetwork, err)
}

func cloneIdentity(id *domainauth.Identity) *domainauth.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func sameIdentity(a, b *domainauth.Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Same(*b)
}
