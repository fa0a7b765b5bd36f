package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const readinessTimeout = 3 * time.Second

type handlers struct {
	checks []ReadinessCheck
}

// handleHealth is the liveness probe used by the container health check.
func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReadyz runs every readiness check in order and reports the first failure.
func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.Name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
