package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/brandpulse/internal/api/response"
)

// Pinger is a dependency whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Any failing dependency turns the response into a 503.
func NewHealthHandler(version string, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := "ok"
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				status = "degraded"
				continue
			}
			checks[name] = "ok"
		}

		body := healthResponse{Status: status, Version: version, Checks: checks}
		if status != "ok" {
			response.Error(w, http.StatusServiceUnavailable, response.CodeServiceUnavailable,
				"One or more dependencies are unavailable", body)
			return
		}
		response.JSON(w, body)
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
