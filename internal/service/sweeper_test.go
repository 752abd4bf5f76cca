package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweeperService_Validation(t *testing.T) {
	_, err := NewSweeperService(SweeperServiceOptions{Interval: time.Second})
	require.Error(t, err)

	_, err = NewSweeperService(SweeperServiceOptions{
		Steps: []SweepStep{{Label: "noop", Fn: func(context.Context) (int, error) { return 0, nil }}},
	})
	require.Error(t, err)
}

func TestSweeperService_SweepRunsEveryStep(t *testing.T) {
	var calls []string
	svc, err := NewSweeperService(SweeperServiceOptions{
		Interval: time.Minute,
		Logger:   slog.New(slog.DiscardHandler),
		Steps: []SweepStep{
			{Label: "idle sessions", Fn: func(context.Context) (int, error) {
				calls = append(calls, "idle")
				return 0, errors.New("boom")
			}},
			{Label: "client state", Fn: func(context.Context) (int, error) {
				calls = append(calls, "state")
				return 3, nil
			}},
		},
	})
	require.NoError(t, err)

	err = svc.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idle sessions: boom")
	assert.Equal(t, []string{"idle", "state"}, calls)
}

func TestSweeperService_RunStopsOnCancel(t *testing.T) {
	var sweeps atomic.Int32
	svc, err := NewSweeperService(SweeperServiceOptions{
		Interval: 10 * time.Millisecond,
		Steps: []SweepStep{{Label: "count", Fn: func(context.Context) (int, error) {
			sweeps.Add(1)
			return 0, nil
		}}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return sweeps.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeperService_SweepsPortalSessions(t *testing.T) {
	h := newPortalHarness(t, time.Minute)
	ctx := context.Background()
	_, err := h.svc.Session(ctx, "client-a")
	require.NoError(t, err)
	h.now = h.now.Add(2 * time.Minute)

	svc, err := NewSweeperService(SweeperServiceOptions{
		Interval: time.Minute,
		Steps:    []SweepStep{{Label: "idle sessions", Fn: h.svc.SweepIdle}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Sweep(ctx))
	assert.Zero(t, h.svc.Active())
}
