// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/services/schedule"
	notificationstore "github.com/dalemusser/studyhub/internal/app/store/notifications"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB            *mongo.Database
	Schedule      *schedule.Service
	Notifications *notificationstore.Store
	Log           *zap.Logger
}

func NewHandler(db *mongo.Database, sched *schedule.Service, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Schedule:      sched,
		Notifications: notificationstore.New(db),
		Log:           logger,
	}
}

// ServeDashboard sends admins to the admin console and renders the student
// dashboard for everyone else.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	role, _, _, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch role {
	case models.RoleAdmin:
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	case models.RoleStudent:
		h.ServeStudent(w, r)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
