package http

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/mcpmux/mcpmux/internal/domain/app"
)

// HealthResponse is the JSON body returned by the health endpoint.
type HealthResponse struct {
	Status     string         `json:"status"`
	Version    string         `json:"version"`
	Goroutines int            `json:"goroutines"`
	Apps       int            `json:"apps"`
	Checks     map[string]any `json:"checks"`
}

// HealthChecker reports whether mcpmux's essential dependencies — chiefly
// the app registry store — are reachable.
type HealthChecker struct {
	store   app.Store
	version string
}

// NewHealthChecker creates a checker backed by the given app store.
func NewHealthChecker(store app.Store, version string) *HealthChecker {
	return &HealthChecker{store: store, version: version}
}

// Check performs the health check and returns the response body along
// with whether the service should be considered healthy.
func (h *HealthChecker) Check(r *http.Request) (HealthResponse, bool) {
	checks := make(map[string]any)
	healthy := true

	apps, err := h.store.List(r.Context())
	if err != nil {
		checks["store"] = "unreachable: " + err.Error()
		healthy = false
	} else {
		checks["store"] = "ok"
	}

	status := "ok"
	if !healthy {
		status = "degraded"
	}

	return HealthResponse{
		Status:     status,
		Version:    h.version,
		Goroutines: runtime.NumGoroutine(),
		Apps:       len(apps),
		Checks:     checks,
	}, healthy
}

// Handler serves GET /health.
func (h *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, healthy := h.Check(r)

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
