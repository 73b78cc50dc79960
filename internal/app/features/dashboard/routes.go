// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the student dashboard (mounted at "/dashboard").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeDashboard)
	return r
}

// AdminRoutes wires the admin landing page (mounted at "/admin").
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeAdmin)
	return r
}
