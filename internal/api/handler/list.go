package handler

import (
	"net/http"
	"time"

	"trustd/internal/service"
)

// ListHandler exposes the current trust records for inspection.
type ListHandler struct {
	svc *service.TrustService
}

// NewListHandler creates a list handler.
func NewListHandler(svc *service.TrustService) *ListHandler {
	return &ListHandler{svc: svc}
}

type listEntry struct {
	Identity     string     `json:"identity"`
	IP           string     `json:"ip"`
	Created      time.Time  `json:"created"`
	Modified     *time.Time `json:"modified,omitempty"`
	CacheExpires *time.Time `json:"cache_expires,omitempty"`
}

// List handles GET /list.
func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	entries := make([]listEntry, 0, len(records))
	for _, rec := range records {
		entry := listEntry{
			Identity: rec.Identity,
			IP:       rec.IP,
			Created:  rec.CreatedAt,
			Modified: rec.ModifiedAt,
		}
		if expires, ok := h.svc.CacheExpiry(rec.IP); ok {
			entry.CacheExpires = &expires
		}
		entries = append(entries, entry)
	}
	respondJSON(w, http.StatusOK, entries)
}
