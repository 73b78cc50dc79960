// internal/app/features/students/routes.go
package students

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires student management (mounted at "/students"); admin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Post("/{id}/moderate", h.HandleModerate)
		wr.Post("/{id}/delete", h.HandleDelete)
	})
	return r
}
