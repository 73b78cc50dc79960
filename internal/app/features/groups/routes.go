// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the group pages under /groups. Reads need a signed-in user;
// every write also needs an Active account.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// LIST
		pr.Get("/", h.ServeGroupsList)
		pr.Get("/mine", h.ServeMyGroups)

		// VIEW
		pr.Get("/{id}", h.ServeGroupView)

		pr.Group(func(wr chi.Router) {
			wr.Use(sm.RequireActive)

			// CREATE
			wr.Get("/new", h.ServeNewGroup)
			wr.Post("/", h.HandleCreateGroup)

			// EDIT
			wr.Get("/{id}/edit", h.ServeEditGroup)
			wr.Post("/{id}/edit", h.HandleEditGroup)

			// MEMBERSHIP
			wr.Post("/{id}/join", h.HandleJoin)
			wr.Post("/{id}/leave", h.HandleLeave)
			wr.Post("/{id}/members/{userID}/role", h.HandleChangeRole)
		})
	})

	return r
}

// AdminRoutes wires the admin group console under /admin/groups.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeAdminConsole)
	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Post("/{id}/privacy", h.HandleTogglePrivacy)
		wr.Post("/{id}/delete", h.HandleDeleteGroup)
	})
	return r
}
