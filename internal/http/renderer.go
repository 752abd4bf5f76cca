package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	portal "github.com/auy/thinkers-portal"
	"github.com/auy/thinkers-portal/internal/domain/access"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// PageData is the view model shared by every server-rendered page.
type PageData struct {
	Title       string
	Path        string
	User        *domainauth.UserProfile
	IsDemo      bool
	Nav         []access.NavEntry
	DataSource  string
	Error       string
	RedirectURI string
	DemoEnabled bool
	DemoRoles   []domainauth.Role
}

// TemplateRenderer renders HTML templates for browser responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing *.html templates (required)
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer parses every template in cfg.TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	t, err := template.ParseFS(cfg.TemplateFS, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// EmbeddedTemplates returns the page templates compiled into the binary.
func EmbeddedTemplates() (fs.FS, error) {
	return fs.Sub(portal.TemplateFS, "web/templates")
}

// Render executes the named template into a buffer first so a failing template never
// produces a half-written page.
func (r *TemplateRenderer) Render(w http.ResponseWriter, req *http.Request, code int, name string, data PageData) {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.ErrorContext(req.Context(), "template render failed", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

//nolint:gochecknoglobals // parsed once; the guard middleware has no renderer handle
var loadingTemplate = template.Must(template.New("loading").Parse(`<!doctype html>
<html lang="en"><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body class="loading"><main aria-busy="true"><p>Loading…</p></main></body></html>
`))

// renderLoading writes the neutral loading page shown while a session resolves.
func renderLoading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusAccepted)
	if err := loadingTemplate.Execute(w, nil); err != nil {
		return
	}
}
