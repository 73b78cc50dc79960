// internal/app/features/discussions/routes.go
package discussions

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires discussions (mounted at "/groups/{id}/discussions").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/{discussionID}", h.ServeThread)

	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Get("/new", h.ServeNew)
		wr.Post("/", h.HandleCreate)
		wr.Post("/{discussionID}/replies", h.HandleReply)
		wr.Post("/{discussionID}/pin", h.HandlePin)
		wr.Post("/{discussionID}/delete", h.HandleDelete)
		wr.Post("/replies/{replyID}/delete", h.HandleDeleteReply)
	})
	return r
}
