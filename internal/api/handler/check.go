package handler

import (
	"net/http"

	"trustd/internal/realip"
	"trustd/internal/service"
)

// CheckHandler answers the reverse proxy's trust question.
type CheckHandler struct {
	svc    *service.TrustService
	realIP *realip.Extractor
}

// NewCheckHandler creates a check handler.
func NewCheckHandler(svc *service.TrustService, realIP *realip.Extractor) *CheckHandler {
	return &CheckHandler{svc: svc, realIP: realIP}
}

// Check handles GET /check. 204 means the source IP is trusted, 403 that
// it is not; a store failure is a 500, never an allow.
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	addr, err := h.realIP.FromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	trusted, err := h.svc.Check(r.Context(), addr)
	if err != nil {
		handleError(w, err)
		return
	}

	if !trusted {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
