// internal/app/features/groups/groupedit.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
)

// ServeEditGroup renders the edit form for a group.
func (h *Handler) ServeEditGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "edit group", err, "/groups")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Registry.Get(ctx, gid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load group", err, "/groups")
		return
	}
	templates.Render(w, r, "group_form", groupFormData{
		BaseVM:  viewdata.NewBaseVM(r, "Edit group", "/groups/"+gid.Hex()),
		GroupID: gid.Hex(),
		In: groupreg.Input{
			Name:        g.Name,
			Description: g.Description,
			Subject:     g.Subject,
			IsPrivate:   g.IsPrivate,
		},
	})
}

// HandleEditGroup saves name, description and subject.
func (h *Handler) HandleEditGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "edit group", err, "/groups")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/"+gid.Hex())
		return
	}
	in := readGroupForm(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Registry.Edit(ctx, actor, gid, in); err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "group_form", groupFormData{
				BaseVM:  viewdata.NewBaseVM(r, "Edit group", "/groups/"+gid.Hex()),
				GroupID: gid.Hex(),
				In:      in,
				Errors:  fields,
			})
			return
		}
		h.ErrLog.HandleServiceError(w, r, "edit group", err, "/groups/"+gid.Hex())
		return
	}
	shared.SeeOther(w, r, "/groups/"+gid.Hex())
}

// HandleTogglePrivacy flips a group between public and private (admin).
func (h *Handler) HandleTogglePrivacy(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	back := httpnav.ResolveBackURL(r, "/admin/groups")
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "toggle privacy", err, back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Registry.TogglePrivacy(ctx, actor, gid); err != nil {
		h.ErrLog.HandleServiceError(w, r, "toggle privacy", err, back)
		return
	}
	shared.SeeOther(w, r, back)
}
