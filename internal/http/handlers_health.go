package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// ReadinessCheck probes one backing dependency such as Redis or Postgres.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

type readinessHandler struct {
	checks []ReadinessCheck
	logger *slog.Logger
}

type readinessBody struct {
	Status  string   `json:"status"`
	Failing []string `json:"failing,omitempty"`
}

// ServeHTTP runs every probe and reports 503 with the failing names when any fails.
func (h readinessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var failing []string
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness probe failed", "check", c.Name, "error", err)
			failing = append(failing, c.Name)
		}
	}
	if len(failing) > 0 {
		WriteJSON(w, http.StatusServiceUnavailable, readinessBody{Status: "unavailable", Failing: failing})
		return
	}
	WriteJSON(w, http.StatusOK, readinessBody{Status: "ok"})
}
