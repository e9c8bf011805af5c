package handler

import (
	"net/http"

	"trustd/internal/service"
)

// HealthHandler reports liveness of the trust store connection.
type HealthHandler struct {
	svc *service.TrustService
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(svc *service.TrustService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Healthy(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
