package access

import (
	"strings"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// Landing paths.
const (
	LoginPath   = "/login"
	DefaultPath = "/dashboard"
)

// NavEntry is a static navigation item.
type NavEntry struct {
	Label string             `json:"label"`
	Path  string             `json:"path"`
	Roles domainauth.RoleSet `json:"-"`
}

// Filter returns the entries visible to role, preserving input order.
// A nil role yields an empty list.
func Filter(entries []NavEntry, role *domainauth.Role) []NavEntry {
	out := []NavEntry{}
	if role == nil {
		return out
	}
	for _, e := range entries {
		if e.Roles.Has(*role) {
			out = append(out, e)
		}
	}
	return out
}

// Route is a page path with its role requirement. Roles == nil means any signed-in user.
type Route struct {
	Path  string
	Roles domainauth.RoleSet
}

var (
	everyone     = domainauth.AllRoles()
	adminOnly    = domainauth.NewRoleSet(domainauth.RoleAdmin)
	adminTeacher = domainauth.NewRoleSet(domainauth.RoleAdmin, domainauth.RoleTeacher)
)

// DefaultNav returns the sidebar entries in display order.
func DefaultNav() []NavEntry {
	return []NavEntry{
		{Label: "Dashboard", Path: "/dashboard", Roles: everyone},
		{Label: "Attendance", Path: "/attendance", Roles: everyone},
		{Label: "Exams", Path: "/exams", Roles: everyone},
		{Label: "Results", Path: "/results", Roles: everyone},
		{Label: "Announcements", Path: "/announcements", Roles: everyone},
		{Label: "Users", Path: "/users", Roles: adminOnly},
		{Label: "Courses", Path: "/courses", Roles: adminTeacher},
	}
}

// DefaultRoutes returns the protected page routes.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/dashboard"},
		{Path: "/attendance"},
		{Path: "/exams"},
		{Path: "/results"},
		{Path: "/announcements"},
		{Path: "/users", Roles: adminOnly},
		{Path: "/courses", Roles: adminTeacher},
	}
}

// Lookup finds the route for path. Trailing slashes are ignored.
func Lookup(routes []Route, path string) (Route, bool) {
	p := strings.TrimSuffix(path, "/")
	for _, r := range routes {
		if r.Path == p {
			return r, true
		}
	}
	return Route{}, false
}
