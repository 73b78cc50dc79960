// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/store/queries/groupqueries"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/paging"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeGroupsList handles GET /groups: every group with its member count,
// filterable by subject and searchable by name prefix.
func (h *Handler) ServeGroupsList(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "Browse groups", "/groups", nil)
}

// ServeMyGroups handles GET /groups/mine: the groups the user belongs to.
func (h *Handler) ServeMyGroups(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	gids, err := membershipstore.New(h.DB).GroupIDsForUser(ctx, actor.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading memberships", err, "A database error occurred.", "/groups")
		return
	}
	if gids == nil {
		gids = []primitive.ObjectID{}
	}
	h.serveList(w, r, "My groups", "/groups/mine", gids)
}

// ServeAdminConsole handles GET /admin/groups.
func (h *Handler) ServeAdminConsole(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "Manage groups", "/admin/groups", nil)
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, heading, action string, scope []primitive.ObjectID) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	q := r.URL.Query()
	search := normalize.QueryParam(q.Get("search"))
	subject := normalize.QueryParam(q.Get("subject"))
	page := paging.FromRequest(r, paging.PageSize)
	res, err := groupqueries.ListGroupsWithCounts(ctx, h.DB, groupqueries.ListFilter{
		GroupIDs:    scope,
		Subject:     subject,
		SearchQuery: search,
	}, page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error fetching groups list", err, "A database error occurred.", "/")
		return
	}

	rows, pg := paging.Finish(page, res.Items,
		func(g groupqueries.GroupListItem) string { return g.NameCI },
		func(g groupqueries.GroupListItem) primitive.ObjectID { return g.ID })

	subjects, err := groupstore.New(h.DB).Subjects(ctx)
	if err != nil {
		h.Log.Warn("list subjects", zap.Error(err))
	}

	templates.Render(w, r, "groups_list", groupListData{
		BaseVM:          viewdata.NewBaseVM(r, heading, "/"),
		Heading:         heading,
		Action:          action,
		Mine:            scope != nil,
		Admin:           authz.IsAdmin(r) && action == "/admin/groups",
		Subjects:        subjects,
		SearchQuery:     search,
		SelectedSubject: subject,
		Shown:           len(rows),
		Total:           res.Total,
		HasPrev:         pg.HasPrev,
		HasNext:         pg.HasNext,
		PrevCursor:      pg.PrevCursor,
		NextCursor:      pg.NextCursor,
		RangeStart:      pg.Start,
		RangeEnd:        pg.End,
		PrevStart:       pg.PrevStart,
		NextStart:       pg.NextStart,
		Groups:          rows,
	})
}
