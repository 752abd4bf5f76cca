package httpx

import (
	"net/http"
	"strings"

	"github.com/auy/thinkers-portal/internal/domain/access"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// PortalHandlers serves navigation, the current user, and the server-rendered pages.
type PortalHandlers struct {
	T           *TemplateRenderer
	Entries     []access.NavEntry
	Routes      []access.Route
	DemoEnabled bool
}

// pageMeta describes how a page route is rendered.
type pageMeta struct {
	Title      string
	DataSource string
}

//nolint:gochecknoglobals // static read-only lookup for page titles
var pages = map[string]pageMeta{
	"/dashboard":     {Title: "Dashboard", DataSource: "/api/dashboard"},
	"/attendance":    {Title: "Attendance", DataSource: "/api/attendance"},
	"/exams":         {Title: "Exams", DataSource: "/api/exams"},
	"/results":       {Title: "Results", DataSource: "/api/results"},
	"/announcements": {Title: "Announcements", DataSource: "/api/announcements"},
	"/users":         {Title: "Users", DataSource: "/api/users"},
	"/courses":       {Title: "Courses", DataSource: "/api/courses"},
}

// Nav returns the navigation entries visible to the caller; empty when signed out.
// GET /api/nav.
func (h *PortalHandlers) Nav(w http.ResponseWriter, r *http.Request) {
	s := StateFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{"entries": access.Filter(h.Entries, s.Role())})
}

// Me returns the signed-in user's profile.
// GET /api/me.
func (h *PortalHandlers) Me(w http.ResponseWriter, r *http.Request) {
	s := StateFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"profile": s.Profile,
		"isDemo":  s.IsDemo,
	})
}

// Login renders the sign-in page. Signed-in users go straight to their destination.
// GET /login.
func (h *PortalHandlers) Login(w http.ResponseWriter, r *http.Request) {
	s := StateFromContext(r.Context())
	redirectURI := landingPath(r.URL.Query().Get("redirect_uri"))
	if s.Authenticated() {
		http.Redirect(w, r, redirectURI, http.StatusSeeOther)
		return
	}
	if s.Loading {
		renderLoading(w, r)
		return
	}
	data := PageData{
		Title:       "Sign in",
		Path:        access.LoginPath,
		Error:       s.Error,
		RedirectURI: redirectURI,
		DemoEnabled: h.DemoEnabled,
	}
	if h.DemoEnabled {
		data.DemoRoles = domainauth.Roles()
	}
	h.T.Render(w, r, http.StatusOK, "login", data)
}

// Page renders a protected page. Unknown paths land on the dashboard.
// GET /{path...}.
func (h *PortalHandlers) Page(w http.ResponseWriter, r *http.Request) {
	route, ok := access.Lookup(h.Routes, r.URL.Path)
	if !ok {
		http.Redirect(w, r, access.DefaultPath, http.StatusSeeOther)
		return
	}
	RequireRoles(route.Roles)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.renderPage(w, r, route.Path)
	})).ServeHTTP(w, r)
}

func (h *PortalHandlers) renderPage(w http.ResponseWriter, r *http.Request, path string) {
	s := StateFromContext(r.Context())
	meta, ok := pages[path]
	if !ok {
		meta = pageMeta{Title: strings.TrimPrefix(path, "/")}
	}
	h.T.Render(w, r, http.StatusOK, "page", PageData{
		Title:      meta.Title,
		Path:       path,
		User:       s.Profile,
		IsDemo:     s.IsDemo,
		Nav:        access.Filter(h.Entries, s.Role()),
		DataSource: meta.DataSource,
	})
}
