// internal/app/features/groups/members.go
package groups

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleJoin adds the current user to a group. A wrong join code sends the
// user back to the join page with a message.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "join group", err, "/groups")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	back := "/groups/" + gid.Hex()
	_, err = h.Ledger.Join(ctx, actor, gid, r.PostFormValue("join_code"))
	switch {
	case err == nil, errors.Is(err, apperr.ErrAlreadyMember):
		shared.SeeOther(w, r, back)
	case errors.Is(err, apperr.ErrInvalidCode):
		shared.SeeOther(w, r, back+"?error="+url.QueryEscape(apperr.UserMessage(err)))
	default:
		h.ErrLog.HandleServiceError(w, r, "join group", err, back)
	}
}

// HandleLeave removes the current user from a group.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "leave group", err, "/groups")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Ledger.Leave(ctx, actor, gid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "leave group", err, "/groups/"+gid.Hex())
		return
	}
	if res.GroupDeleted {
		h.Log.Info("last member left, group removed", zap.String("group_id", gid.Hex()))
	}
	shared.SeeOther(w, r, "/groups/mine")
}

// HandleChangeRole sets a member's role.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "change role", err, "/groups")
		return
	}
	back := "/groups/" + gid.Hex()
	uid, err := shared.IDParam(r, "userID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "change role", err, back)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", back)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Ledger.ChangeRole(ctx, actor, gid, uid, r.PostFormValue("role")); err != nil {
		h.ErrLog.HandleServiceError(w, r, "change role", err, back)
		return
	}
	shared.SeeOther(w, r, back+"#members")
}
