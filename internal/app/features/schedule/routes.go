// internal/app/features/schedule/routes.go
package schedule

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the agenda and per-session actions (mounted at "/sessions").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeAgenda)
	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Post("/{sessionID}/delete", h.HandleDelete)
		wr.Post("/{sessionID}/reminder", h.HandleToggleReminder)
	})
	return r
}

// GroupRoutes wires scheduling inside a group (mounted at "/groups/{id}/sessions").
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireActive)

	r.Get("/new", h.ServeNew)
	r.Post("/", h.HandleCreate)
	return r
}
