package ports

import (
	"context"
	"errors"
	"net/url"
)

// ErrDataAPIUnconfigured is returned by DataAPI when no endpoint is configured.
// Callers substitute fixture data.
var ErrDataAPIUnconfigured = errors.New("data api not configured")

// DataAPI is the remote action-keyed academic data endpoint.
// Transport and non-2xx failures are *domainauth.AuthError values of kind NetworkError.
type DataAPI interface {
	// Get performs GET ?action=<action>&<params> and decodes the JSON body into out.
	Get(ctx context.Context, action string, params url.Values, out any) error
	// Post performs POST ?action=<action> with body encoded as JSON and decodes the reply into out.
	Post(ctx context.Context, action string, body any, out any) error
}
