// Package scriptapi talks to the portal's remote action-keyed data endpoint.
// Every call carries an `action` query parameter; reads are GET and writes are JSON POST.
package scriptapi

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

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

var _ ports.DataAPI = (*Client)(nil)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// Config configures the data API client.
type Config struct {
	// URL is the endpoint. Empty leaves the client unconfigured.
	URL        string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client implements ports.DataAPI over HTTP.
type Client struct {
	base       *url.URL
	retryLimit int
	client     *http.Client
}

// NewClient builds a data API client. An empty URL is valid and yields a client whose
// calls return ports.ErrDataAPIUnconfigured.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	retries := max(cfg.RetryLimit, 0)

	c := &Client{retryLimit: retries, client: hc}
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return c, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse data api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("data api url must be http(s): %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("data api url has no host: %q", raw)
	}
	c.base = u
	return c, nil
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool { return c != nil && c.base != nil }

func (c *Client) endpoint(action string, params url.Values) string {
	u := *c.base
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("action", action)
	u.RawQuery = q.Encode()
	return u.String()
}

// Get performs GET ?action=<action>&<params> and decodes the JSON reply into out.
// Idempotent reads are retried up to RetryLimit times.
func (c *Client) Get(ctx context.Context, action string, params url.Values, out any) error {
	if !c.Configured() {
		return ports.ErrDataAPIUnconfigured
	}
	target := c.endpoint(action, params)

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = c.do(ctx, http.MethodGet, target, nil, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return domainauth.NewAuthError(domainauth.KindNetwork, ctx.Err())
			case <-timer.C:
			}
		}
	}
	return lastErr
}

// Post performs POST ?action=<action> with body encoded as JSON. Writes are never retried.
func (c *Client) Post(ctx context.Context, action string, body any, out any) error {
	if !c.Configured() {
		return ports.ErrDataAPIUnconfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", action, err)
	}
	return c.do(ctx, http.MethodPost, c.endpoint(action, nil), payload, out)
}

// statusError is a non-2xx reply.
type statusError struct {
	method string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s failed: status %d", e.method, e.status)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500 || se.status == http.StatusTooManyRequests
	}
	return domainauth.KindOf(err) == domainauth.KindNetwork && !errors.Is(err, context.Canceled)
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domainauth.NewAuthError(domainauth.KindNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domainauth.NewAuthError(domainauth.KindNetwork, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domainauth.NewAuthError(domainauth.KindNetwork, &statusError{method: method, status: resp.StatusCode})
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
