package handlers

import (
	"log/slog"
	"net/http"
)

// HealthHandler answers liveness checks. The console has no required
// backing services, so reachability is the whole check.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check handles GET /health. Unauthenticated and excluded from tracing.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}
