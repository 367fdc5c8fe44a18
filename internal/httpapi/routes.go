package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/groupstage/draw-backend/internal/hub"
	"github.com/groupstage/draw-backend/internal/ws"
)

func SetupRoutes(h *Handlers, hb *hub.Hub) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(hb))

	r.Route("/tournaments/{slug}/groups", func(r chi.Router) {
		r.Get("/", h.ListGroups)
		r.Post("/draw", h.DrawGroups)
		r.Post("/reset", h.ResetGroups)
		r.Post("/assign-one", h.AssignOne)
	})
	return r
}
