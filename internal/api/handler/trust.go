package handler

import (
	"net/http"

	"trustd/internal/identity"
	"trustd/internal/realip"
	"trustd/internal/service"
)

// TrustHandler records trust grants for authenticated callers.
type TrustHandler struct {
	svc      *service.TrustService
	realIP   *realip.Extractor
	identity identity.Extractor
}

// NewTrustHandler creates a trust handler.
func NewTrustHandler(svc *service.TrustService, realIP *realip.Extractor, id identity.Extractor) *TrustHandler {
	return &TrustHandler{svc: svc, realIP: realIP, identity: id}
}

// TrustMe handles GET/POST /trust_me. It trusts the caller's current IP
// for the identity asserted by the upstream provider, superseding the
// identity's previous IP. Repeating the call with the same IP succeeds
// without changing state.
func (h *TrustHandler) TrustMe(w http.ResponseWriter, r *http.Request) {
	addr, err := h.realIP.FromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	id, err := h.identity.Identity(r)
	if err != nil {
		handleError(w, err)
		return
	}

	rec, err := h.svc.Grant(r.Context(), id, addr)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}
