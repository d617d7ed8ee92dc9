package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethpandaops/overlay-backend/internal/version"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Check reports a dependency's health. Critical checks failing make the
// service unhealthy; others only degrade it.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// Health returns an HTTP handler for the health check endpoint. It responds
// 503 only when a critical check fails.
func Health(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:  StatusHealthy,
			Version: version.Short(),
		}

		if len(checks) > 0 {
			response.Checks = make(map[string]string, len(checks))
		}

		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				response.Checks[check.Name] = err.Error()

				if check.Critical {
					response.Status = StatusUnhealthy
				} else if response.Status == StatusHealthy {
					response.Status = StatusDegraded
				}

				continue
			}

			response.Checks[check.Name] = "ok"
		}

		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)

			return
		}
	}
}
