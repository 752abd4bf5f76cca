package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auy/thinkers-portal/internal/domain/access"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
	"github.com/auy/thinkers-portal/internal/service"
)

const (
	cookieOAuthState        = "oauth_state"
	cookieOAuthNonce        = "oauth_nonce"
	cookiePostLoginRedirect = "post_login_redirect"
	oauthCookieMaxAge       = 600 // 10 minutes
)

// AuthHandlers provides HTTP handlers for authentication operations. Every handler
// runs behind ClientSession and drives the client's session machine.
type AuthHandlers struct {
	DemoEnabled  bool
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// sessionResponse is the JSON view of a client's session.
type sessionResponse struct {
	domainauth.SessionState
	Authenticated bool   `json:"authenticated"`
	DemoEnabled   bool   `json:"demoEnabled"`
	RedirectTo    string `json:"redirectTo,omitempty"`
}

func (h *AuthHandlers) respond(w http.ResponseWriter, s domainauth.SessionState, redirectTo string) {
	WriteJSON(w, http.StatusOK, sessionResponse{
		SessionState:  s,
		Authenticated: s.Authenticated(),
		DemoEnabled:   h.DemoEnabled,
		RedirectTo:    redirectTo,
	})
}

func sessionOrFail(w http.ResponseWriter, r *http.Request) (*service.SessionMachine, bool) {
	m, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "session_missing",
			Err:     errors.New("no session for request"),
		})
	}
	return m, ok
}

// Status returns the current session state.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	h.respond(w, StateFromContext(r.Context()), "")
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Login signs in with email and password.
// POST /auth/login {"email": "...", "password": "..."}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	m, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_credentials",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	if err := m.LoginWithPassword(r.Context(), req.Email, req.Password); err != nil {
		h.logger().InfoContext(r.Context(), "password login failed", "kind", domainauth.KindOf(err))
		writeServiceError(w, err)
		return
	}
	h.respond(w, m.Snapshot(), landingPath(req.RedirectURI))
}

// Federated starts the provider redirect flow.
// GET /auth/federated?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Federated(w http.ResponseWriter, r *http.Request) {
	m, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	redirectURI := landingPath(r.URL.Query().Get("redirect_uri"))

	start, err := m.BeginFederatedLogin(r.Context(), redirectURI)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin federated login failed", "error", err)
		writeServiceError(w, err)
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: start.State, Nonce: start.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, start.AuthURL, http.StatusFound)
}

// Callback completes the provider redirect flow.
// GET /auth/callback?code=<code>&state=<state>, or ?error=<reason> when the user backed out.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	m, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		h.clearOAuthCookies(w, r)
		h.logger().InfoContext(r.Context(), "federated login abandoned", "reason", reason)
		if err := m.CancelFederatedLogin(r.Context()); err != nil && !errors.Is(err, domainauth.ErrPopupCancelled) {
			h.logger().WarnContext(r.Context(), "cancel federated login failed", "error", err)
		}
		h.finishCallback(w, r, access.LoginPath, nil)
		return
	}

	state := q.Get("state")
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}
	stateCookie, err := r.Cookie(cookieOAuthState)
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie(cookieOAuthNonce)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	redirectURI := h.getPostLoginRedirect(w, r)
	h.clearOAuthCookies(w, r)

	err = m.CompleteFederatedLogin(r.Context(), ports.ExchangeInput{
		Code:  q.Get("code"),
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().InfoContext(r.Context(), "federated login failed", "kind", domainauth.KindOf(err))
		// The login page shows the error carried by the session.
		h.finishCallback(w, r, access.LoginPath, err)
		return
	}
	h.finishCallback(w, r, redirectURI, nil)
}

func (h *AuthHandlers) finishCallback(w http.ResponseWriter, r *http.Request, target string, err error) {
	if IsBrowserRequest(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	m, _ := GetSessionFromContext(r.Context())
	h.respond(w, m.Snapshot(), target)
}

type demoRequest struct {
	Role string `json:"role"`
}

// Demo starts a demo session for a role.
// POST /auth/demo {"role": "admin|teacher|student"}.
func (h *AuthHandlers) Demo(w http.ResponseWriter, r *http.Request) {
	m, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	var req demoRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	role, err := domainauth.ParseRole(req.Role)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_role",
			Err:     err,
			Fields:  map[string]string{"role": "must be one of admin, teacher, student"},
		})
		return
	}

	if err := m.DemoLogin(r.Context(), role); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respond(w, m.Snapshot(), access.DefaultPath)
}

// Logout ends the session, real or demo.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	m, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	if err := m.Logout(r.Context()); err != nil {
		// The machine is already signed out locally; the persisted state catches up on the next sync.
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}

	wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if wantsJSON {
		h.respond(w, m.Snapshot(), access.LoginPath)
		return
	}
	http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
}

// oauthCookieParams groups values needed to set OAuth cookies (≤3 params rule).
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores OAuth state, nonce, and the post-login redirect in secure cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	for name, value := range map[string]string{
		cookieOAuthState:        p.State,
		cookieOAuthNonce:        p.Nonce,
		cookiePostLoginRedirect: p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecureRequest(r),
			SameSite: http.SameSiteLaxMode,
			MaxAge:   oauthCookieMaxAge,
		})
	}
}

func (h *AuthHandlers) clearOAuthCookies(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, r, cookieOAuthState)
	h.clearCookie(w, r, cookieOAuthNonce)
	h.clearCookie(w, r, cookiePostLoginRedirect)
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// getPostLoginRedirect returns the post-login redirect stored when the flow began.
func (h *AuthHandlers) getPostLoginRedirect(_ http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cookiePostLoginRedirect); err == nil {
		return landingPath(c.Value)
	}
	return access.DefaultPath
}

// landingPath returns candidate when it is a safe in-app path, else the default landing page.
func landingPath(candidate string) string {
	p := safeRedirectPath(candidate)
	if p == "/" || strings.HasPrefix(p, access.LoginPath) || strings.HasPrefix(p, "/auth/") {
		return access.DefaultPath
	}
	return p
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
// Browsers read "\" as "/" and drop tabs and newlines in Location, so "/\host" and
// "/\t/host" both mean "//host" and are rejected.
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	if strings.ContainsFunc(candidate, func(r rune) bool { return r == '\\' || r < 0x20 || r == 0x7f }) {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") ||
		strings.HasPrefix(u.Path, "//") || strings.Contains(u.Path, "\\") {
		return "/"
	}
	return candidate
}
