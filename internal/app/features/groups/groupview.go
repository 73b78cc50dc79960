// internal/app/features/groups/groupview.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/services/schedule"
	"github.com/dalemusser/studyhub/internal/app/store/queries/groupmembers"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

type groupViewData struct {
	viewdata.BaseVM

	Group  models.StudyGroup
	MyRole string // "" for admins who are not members

	CanParticipate bool
	CanManage      bool
	CanChangeRoles bool
	IsAdmin        bool
	ShowJoinCode   bool

	Members     []groupmembers.GroupMember
	MemberRoles []string
	Messages    []content.MessageView
	LastID      string
	PollMillis  int64
	Discussions []content.DiscussionView
	Upcoming    []schedule.SessionView
	Past        []schedule.SessionView
}

type groupJoinData struct {
	viewdata.BaseVM

	Group       models.StudyGroup
	MemberCount int
	Error       string
}

// ServeGroupView renders a group page. Non-members see the join page.
func (h *Handler) ServeGroupView(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "view group", err, "/groups")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Registry.Get(ctx, gid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "view group", err, "/groups")
		return
	}
	role, err := grouppolicy.MemberRole(ctx, h.DB, gid, actor.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading membership", err, "A database error occurred.", "/groups")
		return
	}

	members, err := groupmembers.ListGroupMembers(ctx, h.DB, gid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading members", err, "A database error occurred.", "/groups")
		return
	}

	if !grouppolicy.CanView(actor, role) {
		templates.Render(w, r, "group_join", groupJoinData{
			BaseVM:      viewdata.NewBaseVM(r, g.Name, "/groups"),
			Group:       g,
			MemberCount: len(members),
			Error:       r.URL.Query().Get("error"),
		})
		return
	}

	data := groupViewData{
		BaseVM:         viewdata.NewBaseVM(r, g.Name, "/groups"),
		Group:          g,
		MyRole:         role,
		PollMillis:     h.PollMillis,
		CanParticipate: grouppolicy.CanParticipate(actor, role),
		CanManage:      grouppolicy.CanManage(actor, role),
		CanChangeRoles: grouppolicy.CanChangeRoles(actor, role),
		IsAdmin:        actor.IsAdmin(),
		ShowJoinCode:   g.IsPrivate && (actor.IsAdmin() || role == models.MemberRoleOwner),
		Members:        members,
		MemberRoles:    models.MemberRoles,
	}

	if data.Messages, err = h.Content.Recent(ctx, actor, gid, content.RecentLimit); err != nil {
		h.ErrLog.HandleServiceError(w, r, "load messages", err, "/groups")
		return
	}
	if n := len(data.Messages); n > 0 {
		data.LastID = data.Messages[n-1].ID
	}
	if data.Discussions, err = h.Content.ListDiscussions(ctx, actor, gid); err != nil {
		h.ErrLog.HandleServiceError(w, r, "load discussions", err, "/groups")
		return
	}
	if data.Upcoming, data.Past, err = h.Schedule.ForGroup(ctx, actor, gid); err != nil {
		h.ErrLog.HandleServiceError(w, r, "load sessions", err, "/groups")
		return
	}

	templates.Render(w, r, "group_view", data)
}
