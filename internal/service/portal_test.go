package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auy/thinkers-portal/internal/adapters/allowlist"
	"github.com/auy/thinkers-portal/internal/adapters/fixtures"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	mockauth "github.com/auy/thinkers-portal/internal/mocks/auth"
	"github.com/auy/thinkers-portal/internal/testutil"
)

type portalHarness struct {
	svc      *PortalService
	state    *mockauth.MemoryClientState
	provider *mockauth.MockAuthProvider
	now      time.Time
}

func newPortalHarness(t *testing.T, idle time.Duration) *portalHarness {
	t.Helper()
	h := &portalHarness{
		state:    mockauth.NewMemoryClientState(),
		provider: mockauth.NewMockAuthProvider(),
		now:      testutil.TestTime(),
	}
	h.provider.Passwords[fixtures.DemoAdminEmail] = testPassword

	h.svc = NewPortalService(PortalServiceOptions{
		Provider: h.provider,
		Allowlist: NewAllowlistService(AllowlistServiceOptions{
			Source: allowlist.NewStaticSource(fixtures.AllowlistEntries()...),
		}),
		State:        h.state,
		DemoProfiles: fixtures.DemoProfile,
		IdleTimeout:  idle,
		Now:          func() time.Time { return h.now },
	})
	t.Cleanup(h.svc.Close)
	return h
}

func TestPortalService_SessionPerClient(t *testing.T) {
	h := newPortalHarness(t, 0)
	ctx := context.Background()

	_, err := h.svc.Session(ctx, "")
	require.ErrorIs(t, err, ErrClientIDRequired)

	a, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	b, err := h.svc.Session(ctx, "client-b")
	require.NoError(t, err)
	again, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, h.svc.Active())
	assert.True(t, h.svc.DemoEnabled())

	require.NoError(t, a.LoginWithPassword(ctx, fixtures.DemoAdminEmail, testPassword))
	assert.Equal(t, domainauth.PhaseAuthenticated, a.Snapshot().Phase)
	assert.Equal(t, domainauth.PhaseUnauthenticated, b.Snapshot().Phase)
}

func TestPortalService_RebuildsFromPersistedState(t *testing.T) {
	h := newPortalHarness(t, 0)
	ctx := context.Background()

	m, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	require.NoError(t, m.LoginWithPassword(ctx, fixtures.DemoAdminEmail, testPassword))

	h.svc.Release("client-a")
	assert.Zero(t, h.svc.Active())

	rebuilt, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	assert.NotSame(t, m, rebuilt)

	s := rebuilt.Snapshot()
	require.NotNil(t, s.Profile)
	assert.Equal(t, "Dr. Thandar Win", s.Profile.Name)
}

func TestPortalService_DemoSurvivesRebuild(t *testing.T) {
	h := newPortalHarness(t, 0)
	ctx := context.Background()

	m, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	require.NoError(t, m.DemoLogin(ctx, domainauth.RoleTeacher))

	h.svc.Release("client-a")
	rebuilt, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)

	s := rebuilt.Snapshot()
	assert.True(t, s.IsDemo)
	require.NotNil(t, s.Profile)
	assert.Equal(t, domainauth.RoleTeacher, s.Profile.Role)
}

func TestPortalService_SessionPicksUpExternalSignOut(t *testing.T) {
	h := newPortalHarness(t, 0)
	ctx := context.Background()

	m, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	require.NoError(t, m.LoginWithPassword(ctx, fixtures.DemoAdminEmail, testPassword))

	// Another instance signs the client out.
	require.NoError(t, h.state.IdentityFor("client-a").Clear(ctx))

	m, err = h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	assert.Equal(t, domainauth.PhaseUnauthenticated, m.Snapshot().Phase)
}

func TestPortalService_SweepIdle(t *testing.T) {
	h := newPortalHarness(t, 10*time.Minute)
	ctx := context.Background()

	_, err := h.svc.Session(ctx, "old")
	require.NoError(t, err)
	h.now = h.now.Add(8 * time.Minute)
	_, err = h.svc.Session(ctx, "fresh")
	require.NoError(t, err)
	h.now = h.now.Add(5 * time.Minute)

	n, err := h.svc.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, h.svc.Active())
}

func TestPortalService_SweepIdleDisabled(t *testing.T) {
	h := newPortalHarness(t, 0)
	ctx := context.Background()

	_, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	h.now = h.now.Add(24 * time.Hour)

	n, err := h.svc.SweepIdle(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
