package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auy/thinkers-portal/internal/adapters/allowlist"
	"github.com/auy/thinkers-portal/internal/adapters/fixtures"
	"github.com/auy/thinkers-portal/internal/adapters/scriptapi"
	mockauth "github.com/auy/thinkers-portal/internal/mocks/auth"
	"github.com/auy/thinkers-portal/internal/service"
)

const testPassword = "correct horse"

// routerHarness wires the real router to in-memory client state and a mock provider.
type routerHarness struct {
	handler  http.Handler
	portal   *service.PortalService
	provider *mockauth.MockAuthProvider
	state    *mockauth.MemoryClientState
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	h := &routerHarness{
		provider: mockauth.NewMockAuthProvider(),
		state:    mockauth.NewMemoryClientState(),
	}
	for _, email := range []string{
		fixtures.DemoAdminEmail, fixtures.DemoTeacherEmail, fixtures.DemoStudentEmail, "stranger@example.com",
	} {
		h.provider.Passwords[email] = testPassword
	}
	h.provider.FederatedEmail = fixtures.DemoTeacherEmail

	h.portal = service.NewPortalService(service.PortalServiceOptions{
		Provider: h.provider,
		Allowlist: service.NewAllowlistService(service.AllowlistServiceOptions{
			Source: allowlist.NewStaticSource(fixtures.AllowlistEntries()...),
		}),
		State:        h.state,
		DemoProfiles: fixtures.DemoProfile,
	})
	t.Cleanup(h.portal.Close)

	api, err := scriptapi.NewClient(scriptapi.Config{})
	require.NoError(t, err)

	h.handler, err = NewRouter(RouterServices{
		Sessions: h.portal,
		Academic: service.NewAcademicService(service.AcademicServiceOptions{API: api, Fallback: fixtures.Data{}}),
	})
	require.NoError(t, err)
	return h
}

// client is one browser: it replays the cookies the server set.
type client struct {
	t       *testing.T
	h       *routerHarness
	cookies map[string]string
}

func (h *routerHarness) newClient(t *testing.T) *client {
	t.Helper()
	return &client{t: t, h: h, cookies: map[string]string{}}
}

type request struct {
	method string
	path   string
	body   string
	accept string
}

func (c *client) do(req request) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	r.Header.Set("Accept", accept)
	for name, value := range c.cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	rec := httptest.NewRecorder()
	c.h.handler.ServeHTTP(rec, r)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(request{method: http.MethodGet, path: path})
}

func (c *client) browse(path string) *httptest.ResponseRecorder {
	return c.do(request{method: http.MethodGet, path: path, accept: "text/html"})
}

func (c *client) post(path, body string) *httptest.ResponseRecorder {
	return c.do(request{method: http.MethodPost, path: path, body: body})
}

func (c *client) login(email string) {
	c.t.Helper()
	rec := c.post("/auth/login", `{"email":"`+email+`","password":"`+testPassword+`"}`)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (c *client) demo(role string) {
	c.t.Helper()
	rec := c.post("/auth/demo", `{"role":"`+role+`"}`)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type statusBody struct {
	Phase         string `json:"phase"`
	Authenticated bool   `json:"authenticated"`
	IsDemo        bool   `json:"isDemo"`
	Loading       bool   `json:"loading"`
	ErrorKind     string `json:"errorKind"`
	Error         string `json:"error"`
	DemoEnabled   bool   `json:"demoEnabled"`
	RedirectTo    string `json:"redirectTo"`
	Profile       *struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"profile"`
}

type errBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}
