package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auy/thinkers-portal/internal/domain/access"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/service"
)

// ClientCookieName identifies the browser client across requests.
const ClientCookieName = "portal_client"

// defaultClientCookieMaxAge applies when ClientSessionConfig.MaxAge is zero.
const defaultClientCookieMaxAge = 30 * 24 * time.Hour

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionProvider hands out the session machine of a browser client.
type SessionProvider interface {
	Session(ctx context.Context, clientID string) (*service.SessionMachine, error)
	DemoEnabled() bool
}

// ClientSessionConfig configures the ClientSession middleware.
type ClientSessionConfig struct {
	Sessions     SessionProvider
	CookieDomain string
	// MaxAge of the client cookie. Defaults to 30 days.
	MaxAge time.Duration
	Logger *slog.Logger
}

// ClientSession returns a middleware that identifies the browser client by cookie, issuing
// a new client id when the cookie is missing or malformed, and places the client's session
// machine in the request context.
func ClientSession(cfg ClientSessionConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultClientCookieMaxAge
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIDFromCookie(r)
			if clientID == "" {
				clientID = uuid.NewString()
			}
			// Refresh on every request so active clients keep their id.
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookieName,
				Value:    clientID,
				Path:     "/",
				Domain:   cfg.CookieDomain,
				HttpOnly: true,
				Secure:   isSecureRequest(r),
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(maxAge.Seconds()),
			})

			m, err := cfg.Sessions.Session(r.Context(), clientID)
			if err != nil {
				logger.ErrorContext(r.Context(), "load client session failed", "error", err)
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "session_unavailable",
					Err:     errors.New("session store is unavailable"),
				})
				return
			}

			ctx := setClientIDInContext(r.Context(), clientID)
			ctx = SetSessionInContext(ctx, m)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIDFromCookie(r *http.Request) string {
	c, err := r.Cookie(ClientCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// RequireRoles returns a middleware that admits the request only when the session guard
// renders for roles. A nil roles set admits any signed-in user.
// For API requests: 202 while loading, 401 when signed out, 403 for the wrong role.
// For browser requests: a loading page, or a redirect to the login or landing page.
func RequireRoles(roles domainauth.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := access.Decide(StateFromContext(r.Context()), roles)
			if decision == access.Render {
				next.ServeHTTP(w, r)
				return
			}
			writeDecision(w, r, decision)
		})
	}
}

// RequireAuth admits any signed-in user.
func RequireAuth() func(http.Handler) http.Handler {
	return RequireRoles(nil)
}

func writeDecision(w http.ResponseWriter, r *http.Request, d access.Decision) {
	browser := IsBrowserRequest(r)
	switch d {
	case access.RenderLoading:
		w.Header().Set("Retry-After", "1")
		if browser {
			renderLoading(w, r)
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
	case access.RedirectToLogin:
		if browser {
			redirectToLogin(w, r)
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
	case access.RedirectToDefault:
		if browser {
			http.Redirect(w, r, access.DefaultPath, http.StatusSeeOther)
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("insufficient permissions"),
		})
	default:
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("unexpected access decision"),
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that detects browser requests vs API requests.
// It sets a context value that can be used by downstream handlers to determine
// whether to return HTML or JSON responses.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			isBrowser := isBrowserRequest(r)
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if val := r.Context().Value(browserRequestKey{}); val != nil {
		if isBrowser, ok := val.(bool); ok {
			return isBrowser
		}
	}
	// Fallback to direct detection if middleware wasn't used
	return isBrowserRequest(r)
}

// isBrowserRequest determines if a request is from a browser based on:
// 1. Path prefix - API and auth routes are JSON endpoints
// 2. Accept header - browsers typically accept text/html.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		// No Accept header, assume browser for non-API routes
		return true
	}

	return strings.Contains(accept, "text/html")
}

// redirectToLogin sends browser requests to the login page, remembering where they were going.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	u := url.URL{Path: access.LoginPath}
	if target := safeRedirectPath(r.URL.RequestURI()); target != "/" && target != access.LoginPath {
		q := url.Values{}
		q.Set("redirect_uri", target)
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
