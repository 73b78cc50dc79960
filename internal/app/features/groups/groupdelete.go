// internal/app/features/groups/groupdelete.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleDeleteGroup deletes a group and everything in it (admin only).
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete group", err, "/admin/groups")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Registry.Delete(ctx, actor, gid); err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete group", err, "/admin/groups")
		return
	}
	h.Log.Info("group deleted via console", zap.String("group_id", gid.Hex()), zap.String("actor", actor.ID.Hex()))
	shared.SeeOther(w, r, "/admin/groups")
}
