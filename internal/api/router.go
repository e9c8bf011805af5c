package api

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trustd/internal/api/handler"
	"trustd/internal/api/middleware"
	"trustd/internal/identity"
	"trustd/internal/realip"
	"trustd/internal/service"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	svc *service.TrustService,
	realIP *realip.Extractor,
	id identity.Extractor,
	logger *log.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	checkHandler := handler.NewCheckHandler(svc, realIP)
	r.Get("/check", checkHandler.Check)

	trustHandler := handler.NewTrustHandler(svc, realIP, id)
	r.Get("/trust_me", trustHandler.TrustMe)
	r.Post("/trust_me", trustHandler.TrustMe)

	listHandler := handler.NewListHandler(svc)
	r.Get("/list", listHandler.List)

	healthHandler := handler.NewHealthHandler(svc)
	r.Get("/health", healthHandler.Health)

	return r
}
