// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves the profile to every signed-in user, whatever their status.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeProfile)
	r.Post("/", h.HandleUpdateProfile)
	r.Post("/password", h.HandleChangePassword)
	return r
}
