// internal/app/features/dashboard/common.go
package dashboard

import (
	"github.com/dalemusser/studyhub/internal/app/services/schedule"
	"github.com/dalemusser/studyhub/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

// upcomingShown caps the sessions listed on a dashboard.
const upcomingShown = 5

type studentDashboardData struct {
	viewdata.BaseVM

	Groups   []groupqueries.GroupListItem
	Upcoming []schedule.SessionView
	Unread   int64
}

// adminDashboardData carries platform counts for the admin console.
type adminDashboardData struct {
	viewdata.BaseVM

	UsersByStatus map[string]int64
	GroupsCount   int64
	MessagesCount int64
	Pending       []models.User
	Upcoming      []schedule.SessionView
}

func firstN[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
