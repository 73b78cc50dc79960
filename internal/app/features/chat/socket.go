// internal/app/features/chat/socket.go
package chat

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts browsers on this host and non-browser clients that
// send no Origin.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// ServeSocket upgrades GET /groups/{id}/ws to a websocket subscribed to the
// group's room. Frames are realtime.Event JSON; polling stays available.
func (h *Handler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		http.NotFound(w, r)
		return
	}
	actor, ok := shared.ActorJSON(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.JSONError(w, r, "open socket", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	role, err := grouppolicy.MemberRole(ctx, h.DB, gid, actor.ID)
	cancel()
	if err != nil {
		h.ErrLog.JSONError(w, r, "open socket", err)
		return
	}
	if !grouppolicy.CanView(actor, role) {
		h.ErrLog.JSONError(w, r, "open socket", apperr.ErrNotMember)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := realtime.NewConnection(actor.ID.Hex(), ws)
	room := gid.Hex()
	h.Hub.Subscribe(room, conn)
	defer h.Hub.Unsubscribe(room, conn)

	h.Log.Debug("websocket subscribed", zap.String("group_id", room), zap.String("user_id", actor.ID.Hex()))
	conn.Run()
}
