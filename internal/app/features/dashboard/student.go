// internal/app/features/dashboard/student.go
package dashboard

import (
	"context"
	"net/http"

	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/paging"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ServeStudent renders the student's groups, next sessions and unread
// notification count.
func (h *Handler) ServeStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.ActorFrom(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := studentDashboardData{BaseVM: viewdata.NewBaseVM(r, "Dashboard", "/")}

	gids, err := membershipstore.New(h.DB).GroupIDsForUser(ctx, actor.ID)
	if err != nil {
		h.Log.Error("dashboard: load memberships", zap.Error(err))
	} else if len(gids) > 0 {
		res, err := groupqueries.ListGroupsWithCounts(ctx, h.DB,
			groupqueries.ListFilter{GroupIDs: gids}, paging.First(paging.PageSize))
		if err != nil {
			h.Log.Error("dashboard: list groups", zap.Error(err))
		} else {
			data.Groups = firstN(res.Items, paging.PageSize)
		}
	}

	if upcoming, _, err := h.Schedule.Agenda(ctx, actor); err != nil {
		h.Log.Error("dashboard: agenda", zap.Error(err))
	} else {
		data.Upcoming = firstN(upcoming, upcomingShown)
	}

	if n, err := h.Notifications.CountUnread(ctx, actor.ID); err == nil {
		data.Unread = n
	}

	templates.Render(w, r, "student_dashboard", data)
}
