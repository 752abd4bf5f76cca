// Package allowlist provides policy sources that map emails to allowlist records.
package allowlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

const maxBodyBytes = 1 << 20

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	// URL is queried as GET <URL>?email=<email>.
	URL string
	// EntryExpr is an optional JMESPath expression selecting the record inside the response.
	EntryExpr string
	Timeout   time.Duration // default 10s
	Client    *http.Client
}

// HTTPSource looks up allowlist records from a JSON-over-HTTP directory.
type HTTPSource struct {
	base   *url.URL
	expr   string
	client *http.Client
}

var _ ports.AllowlistSource = (*HTTPSource)(nil)

// NewHTTPSource validates cfg and compiles the entry expression.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("allowlist url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid allowlist url %q", raw)
	}

	s := &HTTPSource{base: u, client: cfg.Client}
	if expr := strings.TrimSpace(cfg.EntryExpr); expr != "" {
		if _, compileErr := jmespath.Compile(expr); compileErr != nil {
			return nil, fmt.Errorf("compile allowlist entry expression: %w", compileErr)
		}
		s.expr = expr
	}
	if s.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		s.client = &http.Client{Timeout: timeout}
	}
	return s, nil
}

// Lookup queries the directory for email. A JSON null or an expression that selects
// nothing is reported as ports.ErrNotFound.
func (s *HTTPSource) Lookup(ctx context.Context, email string) (domainauth.AllowlistRecord, error) {
	u := *s.base
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domainauth.AllowlistRecord{}, fmt.Errorf("build allowlist request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return domainauth.AllowlistRecord{}, fmt.Errorf("allowlist request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domainauth.AllowlistRecord{}, fmt.Errorf("read allowlist response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return domainauth.AllowlistRecord{}, ports.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domainauth.AllowlistRecord{}, fmt.Errorf("allowlist lookup: unexpected status %d", resp.StatusCode)
	}

	return s.decode(body)
}

func (s *HTTPSource) decode(body []byte) (domainauth.AllowlistRecord, error) {
	var data any
	if err := json.Unmarshal(bytes.TrimSpace(body), &data); err != nil {
		return domainauth.AllowlistRecord{}, fmt.Errorf("decode allowlist response: %w", err)
	}
	if s.expr != "" {
		selected, err := jmespath.Search(s.expr, data)
		if err != nil {
			return domainauth.AllowlistRecord{}, fmt.Errorf("evaluate allowlist entry expression: %w", err)
		}
		data = selected
	}
	obj, ok := data.(map[string]any)
	if !ok {
		if data == nil {
			return domainauth.AllowlistRecord{}, ports.ErrNotFound
		}
		return domainauth.AllowlistRecord{}, fmt.Errorf("allowlist response is %T, want object", data)
	}

	// Re-encode the selected object so struct tags do the field mapping.
	b, err := json.Marshal(obj)
	if err != nil {
		return domainauth.AllowlistRecord{}, fmt.Errorf("encode allowlist record: %w", err)
	}
	var rec domainauth.AllowlistRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return domainauth.AllowlistRecord{}, fmt.Errorf("decode allowlist record: %w", err)
	}
	return rec, nil
}
