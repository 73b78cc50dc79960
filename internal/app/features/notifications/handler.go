// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	notificationstore "github.com/dalemusser/studyhub/internal/app/store/notifications"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// listLimit caps how many notifications the page shows.
const listLimit = 100

type Handler struct {
	Notifications *notificationstore.Store
	ErrLog        *uierrors.ErrorLogger
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: notificationstore.New(db),
		ErrLog:        errLog,
		Log:           logger,
	}
}

type listData struct {
	viewdata.BaseVM

	Items  []models.Notification
	Unread int64
}

// ServeList handles GET /notifications, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Notifications.ListByUser(ctx, actor.ID, listLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing notifications", err, "A database error occurred.", "/dashboard")
		return
	}
	var unread int64
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}

	if shared.WantsJSON(r) {
		uierrors.WriteJSON(w, http.StatusOK, map[string]any{"notifications": items, "unread": unread})
		return
	}
	templates.Render(w, r, "notifications_list", listData{
		BaseVM: viewdata.NewBaseVM(r, "Notifications", "/dashboard"),
		Items:  items,
		Unread: unread,
	})
}

// ServeUnreadCount handles GET /notifications/unread for the nav badge.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorJSON(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		h.ErrLog.JSONError(w, r, "count notifications", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]int64{"unread": n})
}

// HandleMarkRead handles POST /notifications/{notificationID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.IDParam(r, "notificationID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "mark notification read", err, "/notifications")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, actor.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = apperr.NotFound("notification")
		}
		h.ErrLog.HandleServiceError(w, r, "mark notification read", err, "/notifications")
		return
	}
	shared.SeeOther(w, r, "/notifications")
}

// HandleMarkAllRead handles POST /notifications/read-all.
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error marking notifications read", err, "A database error occurred.", "/notifications")
		return
	}
	h.Log.Debug("notifications marked read", zap.String("user_id", actor.ID.Hex()), zap.Int64("count", n))
	shared.SeeOther(w, r, "/notifications")
}
