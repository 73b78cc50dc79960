// internal/app/features/chat/routes.go
package chat

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the message endpoints (mounted at "/groups/{id}/messages").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/since", h.ServeSince)
	r.Get("/{messageID}/media", h.ServeMedia)

	r.Group(func(wr chi.Router) {
		wr.Use(sm.RequireActive)
		wr.Post("/", h.HandlePost)
		wr.Post("/{messageID}/edit", h.HandleEdit)
		wr.Post("/{messageID}/delete", h.HandleDelete)
	})
	return r
}

// Mount registers the group-level chat pages that live beside the group
// routes: the resources view and the websocket.
func Mount(r chi.Router, h *Handler, sm *auth.SessionManager) {
	r.With(sm.RequireSignedIn).Get("/groups/{id}/resources", h.ServeResources)
	r.With(sm.RequireSignedIn).Get("/groups/{id}/ws", h.ServeSocket)
	r.Mount("/groups/{id}/messages", Routes(h, sm))
}
