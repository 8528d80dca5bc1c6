package handler

import (
	"encoding/json"
	"net/http"

	"github.com/attaboy/lifestats/internal/infra"
)

// HealthHandler returns a health check endpoint. db is nil for the memory
// backend, which is always healthy.
func HealthHandler(db infra.Pinger, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := infra.HealthCheck(r.Context(), db); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status":  "unhealthy",
					"backend": backend,
					"error":   err.Error(),
				})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"backend": backend,
		})
	}
}
