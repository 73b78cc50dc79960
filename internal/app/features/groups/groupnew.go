// internal/app/features/groups/groupnew.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

type groupFormData struct {
	viewdata.BaseVM

	GroupID string // empty when creating
	In      groupreg.Input
	Errors  map[string]string
}

func readGroupForm(r *http.Request) groupreg.Input {
	return groupreg.Input{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Subject:     r.PostFormValue("subject"),
		IsPrivate:   r.PostFormValue("is_private") == "on" || r.PostFormValue("is_private") == "true",
	}
}

// ServeNewGroup renders the create form.
func (h *Handler) ServeNewGroup(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "group_form", groupFormData{
		BaseVM: viewdata.NewBaseVM(r, "New group", "/groups"),
	})
}

// HandleCreateGroup creates a group owned by the current user.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/new")
		return
	}
	in := readGroupForm(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Registry.Create(ctx, actor, in)
	if err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "group_form", groupFormData{
				BaseVM: viewdata.NewBaseVM(r, "New group", "/groups"),
				In:     in,
				Errors: fields,
			})
			return
		}
		h.ErrLog.HandleServiceError(w, r, "create group", err, "/groups/new")
		return
	}
	shared.SeeOther(w, r, "/groups/"+g.ID.Hex())
}
