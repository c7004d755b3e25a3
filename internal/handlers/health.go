package handlers

import (
	"net/http"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Sessions int    `json:"sessions"`
}

// SessionCounter reports how many sessions are open.
type SessionCounter interface {
	Count() int
}

// HealthCheck handles GET /health
// Returns the server's health status for monitoring and load balancer checks.
func HealthCheck(sessions SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Message:  "Talkie thread engine is running",
			Sessions: sessions.Count(),
		})
	}
}
