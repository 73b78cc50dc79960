// internal/app/features/reports/routes.go
package reports

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the admin reports (mounted at "/reports").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Get("/{id}/csv", h.ServeCSV)
	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Get("/new", h.ServeNew)
		wr.Post("/", h.HandleGenerate)
		wr.Post("/{id}/delete", h.HandleDelete)
	})
	return r
}
