package httpx

import (
	"context"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/service"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type sessionKey struct{}

type clientIDKey struct{}

// SetSessionInContext returns a child context that carries the client's session machine.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *service.SessionMachine) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the client's session machine and whether one is present.
func GetSessionFromContext(ctx context.Context) (*service.SessionMachine, bool) {
	if m, ok := ctx.Value(sessionKey{}).(*service.SessionMachine); ok && m != nil {
		return m, true
	}
	return nil, false
}

// StateFromContext returns a snapshot of the request's session state. Requests without a
// session machine are treated as signed out.
func StateFromContext(ctx context.Context) domainauth.SessionState {
	if m, ok := GetSessionFromContext(ctx); ok {
		return m.Snapshot()
	}
	return domainauth.SessionState{Phase: domainauth.PhaseUnauthenticated}
}

// ProfileFromContext returns the signed-in user's profile.
func ProfileFromContext(ctx context.Context) (domainauth.UserProfile, bool) {
	s := StateFromContext(ctx)
	if s.Profile == nil {
		return domainauth.UserProfile{}, false
	}
	return *s.Profile, true
}

func setClientIDInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFromContext returns the browser client id assigned by the ClientSession middleware.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
