package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is a backend that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependency names a checked backend.
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps []Dependency
}

// NewHealthHandler creates a HealthHandler. Entries with a nil checker
// are reported as "not configured".
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HealthResponse is the probe body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe. It never touches dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz pings every dependency in parallel and answers 503 if any fails.
// Failure details stay out of the body; the probe is public.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(h.deps))
	var wg sync.WaitGroup
	for i, dep := range h.deps {
		if dep.Checker == nil {
			results[i] = "not configured"
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = "ok"
			if err := dep.Checker.Ping(ctx); err != nil {
				results[i] = "unavailable"
			}
		}()
	}
	wg.Wait()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.deps))}
	status := http.StatusOK
	for i, dep := range h.deps {
		resp.Checks[dep.Name] = results[i]
		if results[i] == "unavailable" {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
