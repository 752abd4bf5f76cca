package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()

	_, ok := GetSessionFromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, domainauth.PhaseUnauthenticated, StateFromContext(ctx).Phase)
	_, ok = ProfileFromContext(ctx)
	assert.False(t, ok)
	assert.Empty(t, ClientIDFromContext(ctx))

	assert.Equal(t, ctx, SetSessionInContext(ctx, nil))
}

func TestContextHelpers_RoundTrip(t *testing.T) {
	m := unstartedMachine(t)
	ctx := SetSessionInContext(context.Background(), m)
	ctx = setClientIDInContext(ctx, "client-a")

	got, ok := GetSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, m, got)
	assert.True(t, StateFromContext(ctx).Loading)
	assert.Equal(t, "client-a", ClientIDFromContext(ctx))
}
