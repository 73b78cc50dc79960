// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the notification inbox (mounted at "/notifications").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/unread", h.ServeUnreadCount)
	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Post("/read-all", h.HandleMarkAllRead)
		wr.Post("/{notificationID}/read", h.HandleMarkRead)
	})
	return r
}
