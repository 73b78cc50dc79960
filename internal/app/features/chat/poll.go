// internal/app/features/chat/poll.go
package chat

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// sinceResponse is the polling payload.
type sinceResponse struct {
	NewMessages []content.MessageView `json:"new_messages"`
}

// ServeSince handles GET /groups/{id}/messages/since?last=<id>. It returns
// the messages after last in ascending order; an empty last starts from
// the beginning.
func (h *Handler) ServeSince(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorJSON(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.JSONError(w, r, "poll messages", err)
		return
	}

	after := primitive.NilObjectID
	if last := strings.TrimSpace(r.URL.Query().Get("last")); last != "" {
		after, err = primitive.ObjectIDFromHex(last)
		if err != nil {
			uierrors.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid last message id"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msgs, err := h.Content.ListSince(ctx, actor, gid, after)
	if err != nil {
		h.ErrLog.JSONError(w, r, "poll messages", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, sinceResponse{NewMessages: msgs})
}
