package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/auy/thinkers-portal/internal/domain/access"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions SessionProvider          // Required: per-client session machines
	Academic AcademicServiceInterface // Required: academic data API
	// Optional: page renderer. Defaults to the embedded templates.
	Templates *TemplateRenderer
	// Optional: navigation and page routes. Default to access.DefaultNav and access.DefaultRoutes.
	Nav    []access.NavEntry
	Routes []access.Route

	// Optional: dependency probes served on /readyz.
	Readiness []ReadinessCheck

	CookieDomain       string
	ClientCookieMaxAge time.Duration
	Logger             *slog.Logger
}

//nolint:gochecknoglobals // read-only role sets shared by route registration
var (
	staffOnly = domainauth.NewRoleSet(domainauth.RoleAdmin, domainauth.RoleTeacher)
	adminOnly = domainauth.NewRoleSet(domainauth.RoleAdmin)
)

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Sessions == nil {
		return nil, errors.New("sessions provider is required")
	}
	if services.Academic == nil {
		return nil, errors.New("academic service is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tr := services.Templates
	if tr == nil {
		fsys, err := EmbeddedTemplates()
		if err != nil {
			return nil, fmt.Errorf("load embedded templates: %w", err)
		}
		tr, err = NewTemplateRenderer(TemplateRendererConfig{TemplateFS: fsys, Logger: logger})
		if err != nil {
			return nil, err
		}
	}
	nav := services.Nav
	if nav == nil {
		nav = access.DefaultNav()
	}
	routes := services.Routes
	if routes == nil {
		routes = access.DefaultRoutes()
	}

	withSession := ClientSession(ClientSessionConfig{
		Sessions:     services.Sessions,
		CookieDomain: services.CookieDomain,
		MaxAge:       services.ClientCookieMaxAge,
		Logger:       logger,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler{checks: services.Readiness, logger: logger})

	registerAuthRoutes(mux, withSession, &AuthHandlers{
		DemoEnabled:  services.Sessions.DemoEnabled(),
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	})
	portal := &PortalHandlers{T: tr, Entries: nav, Routes: routes, DemoEnabled: services.Sessions.DemoEnabled()}
	registerPortalRoutes(mux, withSession, portal)
	registerAcademicRoutes(mux, withSession, &AcademicHandlers{Svc: services.Academic, Logger: logger})

	var handler http.Handler = mux
	handler = BrowserDetection()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler, nil
}

type middleware = func(http.Handler) http.Handler

// chain applies middlewares so the first one listed runs first.
func chain(h http.HandlerFunc, mws ...middleware) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

func registerAuthRoutes(mux *http.ServeMux, withSession middleware, h *AuthHandlers) {
	mux.Handle("GET /auth/status", chain(h.Status, withSession))
	mux.Handle("POST /auth/login", chain(h.Login, withSession))
	mux.Handle("GET /auth/federated", chain(h.Federated, withSession))
	mux.Handle("GET /auth/callback", chain(h.Callback, withSession))
	mux.Handle("POST /auth/demo", chain(h.Demo, withSession))
	mux.Handle("POST /auth/logout", chain(h.Logout, withSession))
}

func registerPortalRoutes(mux *http.ServeMux, withSession middleware, h *PortalHandlers) {
	mux.Handle("GET /api/nav", chain(h.Nav, withSession))
	mux.Handle("GET /api/me", chain(h.Me, withSession, RequireAuth()))
	mux.Handle("GET /login", chain(h.Login, withSession))
	mux.Handle("GET /{$}", http.RedirectHandler(access.DefaultPath, http.StatusSeeOther))
	mux.Handle("GET /", chain(h.Page, withSession))
	mux.Handle("GET /api/", http.HandlerFunc(apiNotFound))
}

func registerAcademicRoutes(mux *http.ServeMux, withSession middleware, h *AcademicHandlers) {
	signedIn := []middleware{withSession, RequireAuth()}
	staff := []middleware{withSession, RequireRoles(staffOnly)}
	admin := []middleware{withSession, RequireRoles(adminOnly)}

	mux.Handle("GET /api/attendance", chain(h.Attendance, signedIn...))
	mux.Handle("GET /api/attendance/summary", chain(h.AttendanceSummary, signedIn...))
	mux.Handle("POST /api/attendance", chain(h.MarkAttendance, staff...))
	mux.Handle("GET /api/exams", chain(h.Exams, signedIn...))
	mux.Handle("POST /api/exams", chain(h.CreateExam, staff...))
	mux.Handle("GET /api/results", chain(h.Results, signedIn...))
	mux.Handle("POST /api/results", chain(h.SubmitResult, staff...))
	mux.Handle("GET /api/announcements", chain(h.Announcements, signedIn...))
	mux.Handle("POST /api/announcements", chain(h.CreateAnnouncement, staff...))
	mux.Handle("GET /api/courses", chain(h.Courses, staff...))
	mux.Handle("GET /api/users", chain(h.Users, admin...))
	mux.Handle("GET /api/stats", chain(h.Stats, admin...))
	mux.Handle("GET /api/dashboard", chain(h.Dashboard, signedIn...))
}

func apiNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, ErrorParams{
		Code:    http.StatusNotFound,
		ErrCode: "not_found",
		Err:     fmt.Errorf("no route for %s %s", r.Method, r.URL.Path),
	})
}
