// internal/app/features/dashboard/admin.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	messagestore "github.com/dalemusser/studyhub/internal/app/store/messages"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// pendingShown caps the approval queue on the admin dashboard.
const pendingShown = 10

// ServeAdmin renders the admin console landing page.
func (h *Handler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok || !actor.IsAdmin() {
		uierrors.RenderForbidden(w, r, "Only administrators can view this page.", "/")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := adminDashboardData{BaseVM: viewdata.NewBaseVM(r, "Admin Dashboard", "/")}
	users := userstore.New(h.DB)

	var err error
	if data.UsersByStatus, err = users.CountByStatus(ctx, ""); err != nil {
		h.Log.Error("admin dashboard: users by status", zap.Error(err))
	}
	if data.GroupsCount, err = groupstore.New(h.DB).Count(ctx, groupstore.ListFilter{}); err != nil {
		h.Log.Error("admin dashboard: groups", zap.Error(err))
	}
	if data.MessagesCount, err = messagestore.New(h.DB).Count(ctx); err != nil {
		h.Log.Error("admin dashboard: messages", zap.Error(err))
	}
	if data.Pending, err = users.List(ctx, userstore.ListFilter{
		Role:   models.RoleStudent,
		Status: models.StatusPending,
		Limit:  pendingShown,
	}); err != nil {
		h.Log.Error("admin dashboard: pending students", zap.Error(err))
	}
	if upcoming, _, err := h.Schedule.Agenda(ctx, actor); err == nil {
		data.Upcoming = firstN(upcoming, upcomingShown)
	}

	templates.Render(w, r, "admin_dashboard", data)
}
