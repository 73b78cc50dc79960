// internal/app/features/students/students.go
package students

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeList handles GET /students?status=&q=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}
	status := normalize.Filter(r.URL.Query().Get("status"))
	if status != "" && !models.IsValidStatus(status) {
		status = ""
	}
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	counts, err := h.Users.CountByStatus(ctx, models.RoleStudent)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error counting students", err, "A database error occurred.", "/admin")
		return
	}
	list, err := h.Users.List(ctx, userstore.ListFilter{
		Role:   models.RoleStudent,
		Status: status,
		Search: search,
		Limit:  listLimit + 1,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing students", err, "A database error occurred.", "/admin")
		return
	}
	capped := len(list) > listLimit
	if capped {
		list = list[:listLimit]
	}

	var all int64
	for _, n := range counts {
		all += n
	}
	tabs := []statusTab{{Value: "", Label: "All", Count: all, Active: status == ""}}
	for _, st := range models.Statuses {
		tabs = append(tabs, statusTab{Value: st, Label: st, Count: counts[st], Active: status == st})
	}

	templates.Render(w, r, "students_list", listData{
		BaseVM:   viewdata.NewBaseVM(r, "Students", "/admin"),
		Students: list,
		Tabs:     tabs,
		Status:   status,
		Search:   search,
		Capped:   capped,

		ReturnURL: "/students?status=" + url.QueryEscape(status),
	})
}

// ServeView handles GET /students/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load student", err, "/students")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && u.Role != models.RoleStudent) {
		h.ErrLog.HandleServiceError(w, r, "load student", apperr.NotFound("student"), "/students")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading student", err, "A database error occurred.", "/students")
		return
	}
	gids, err := h.Memberships.GroupIDsForUser(ctx, u.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading memberships", err, "A database error occurred.", "/students")
		return
	}
	var groups []models.StudyGroup
	if len(gids) > 0 {
		if groups, err = h.Groups.List(ctx, groupstore.ListFilter{IDs: gids}); err != nil {
			h.ErrLog.LogServerError(w, r, "database error loading groups", err, "A database error occurred.", "/students")
			return
		}
	}

	templates.Render(w, r, "student_view", viewData{
		BaseVM:  viewdata.NewBaseVM(r, u.FullName, "/students"),
		Student: *u,
		Groups:  groups,

		ReturnURL: "/students/" + u.ID.Hex(),
	})
}

// HandleModerate handles POST /students/{id}/moderate with
// action=approve|ban|activate.
func (h *Handler) HandleModerate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "moderate student", err, "/students")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/students")
		return
	}
	action := normalize.QueryParam(r.PostFormValue("action"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	status, err := h.Accounts.Moderate(ctx, actor, id, action)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "moderate student", err, "/students")
		return
	}
	h.Log.Info("student moderated",
		zap.String("student_id", id.Hex()),
		zap.String("action", action),
		zap.String("status", status))
	shared.SeeOther(w, r, returnTo(r))
}

// HandleDelete handles POST /students/{id}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete student", err, "/students")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Accounts.DeleteStudent(ctx, actor, id); err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete student", err, "/students")
		return
	}
	shared.SeeOther(w, r, "/students")
}

// returnTo keeps moderation on the page it was issued from (the list or
// the admin dashboard) but never on the deleted student's page.
func returnTo(r *http.Request) string {
	return urlutil.SafeReturn(r.PostFormValue("return"), "", "/students")
}
