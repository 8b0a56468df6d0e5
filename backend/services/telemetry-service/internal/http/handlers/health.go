package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HealthCheck pings one backend.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewHealthHandler returns GET /health handler. connected, when set, reports the number of
// chargers holding an OCPP session.
func NewHealthHandler(checks []HealthCheck, connected func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  fmt.Sprintf("%s: %v", c.Name, err),
				})
				return
			}
		}

		body := map[string]interface{}{"status": "ok"}
		if connected != nil {
			body["connectedChargers"] = connected()
		}
		writeJSON(w, http.StatusOK, body)
	}
}
