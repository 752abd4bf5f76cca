// Package access holds the pure role-scoped gating rules: the page guard and the navigation filter.
package access

import (
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// Decision is the outcome of evaluating a route against a session.
type Decision int

const (
	// Render shows the requested view.
	Render Decision = iota
	// RenderLoading shows a neutral loading indicator while the session resolves.
	RenderLoading
	// RedirectToLogin sends an anonymous visitor to the login page.
	RedirectToLogin
	// RedirectToDefault sends an authenticated user without the required role to the landing view.
	RedirectToDefault
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RenderLoading:
		return "render_loading"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToDefault:
		return "redirect_to_default"
	default:
		return "unknown"
	}
}

// Decide evaluates the session against a route's role requirement.
// A nil roles set means any authenticated user may render.
func Decide(state domainauth.SessionState, roles domainauth.RoleSet) Decision {
	if state.Loading {
		return RenderLoading
	}
	if state.Profile == nil {
		return RedirectToLogin
	}
	if roles != nil && !roles.Has(state.Profile.Role) {
		return RedirectToDefault
	}
	return Render
}
