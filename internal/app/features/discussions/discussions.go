// internal/app/features/discussions/discussions.go
package discussions

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/markdown"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// groupAndRole loads the group from the {id} param together with the
// actor's membership role. It writes the error page and reports false on
// failure.
func (h *Handler) groupAndRole(ctx context.Context, w http.ResponseWriter, r *http.Request, actor authz.Actor) (models.StudyGroup, string, bool) {
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load group", err, "/groups")
		return models.StudyGroup{}, "", false
	}
	g, err := h.Registry.Get(ctx, gid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load group", err, "/groups")
		return models.StudyGroup{}, "", false
	}
	role, err := grouppolicy.MemberRole(ctx, h.DB, gid, actor.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading membership", err, "A database error occurred.", "/groups")
		return models.StudyGroup{}, "", false
	}
	return g, role, true
}

func base(g models.StudyGroup) string { return "/groups/" + g.ID.Hex() + "/discussions" }

// ServeList handles GET /groups/{id}/discussions.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, role, ok := h.groupAndRole(ctx, w, r, actor)
	if !ok {
		return
	}
	ds, err := h.Content.ListDiscussions(ctx, actor, g.ID)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "list discussions", err, "/groups/"+g.ID.Hex())
		return
	}
	templates.Render(w, r, "discussions_list", listData{
		BaseVM:         viewdata.NewBaseVM(r, "Discussions · "+g.Name, "/groups/"+g.ID.Hex()),
		Group:          g,
		Discussions:    ds,
		CanParticipate: grouppolicy.CanParticipate(actor, role),
		CanManage:      grouppolicy.CanManage(actor, role),
	})
}

// ServeNew renders the new-discussion form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, _, ok := h.groupAndRole(ctx, w, r, actor)
	if !ok {
		return
	}
	templates.Render(w, r, "discussion_form", formData{
		BaseVM: viewdata.NewBaseVM(r, "New discussion", base(g)),
		Group:  g,
	})
}

// HandleCreate handles POST /groups/{id}/discussions.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, _, ok := h.groupAndRole(ctx, w, r, actor)
	if !ok {
		return
	}
	in := content.DiscussionInput{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}
	d, err := h.Content.PostDiscussion(ctx, actor, g.ID, in)
	if err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "discussion_form", formData{
				BaseVM: viewdata.NewBaseVM(r, "New discussion", base(g)),
				Group:  g,
				In:     in,
				Errors: fields,
			})
			return
		}
		h.ErrLog.HandleServiceError(w, r, "post discussion", err, base(g))
		return
	}
	shared.SeeOther(w, r, base(g)+"/"+d.ID.Hex())
}

// ServeThread handles GET /groups/{id}/discussions/{discussionID}.
func (h *Handler) ServeThread(w http.ResponseWriter, r *http.Request) {
	h.renderThread(w, r, http.StatusOK, "", "")
}

func (h *Handler) renderThread(w http.ResponseWriter, r *http.Request, status int, draft, replyErr string) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, role, ok := h.groupAndRole(ctx, w, r, actor)
	if !ok {
		return
	}
	did, err := shared.IDParam(r, "discussionID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load discussion", err, base(g))
		return
	}
	d, replies, err := h.Content.Thread(ctx, actor, g.ID, did)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load discussion", err, base(g))
		return
	}

	rows := make([]replyRow, 0, len(replies))
	for _, rv := range replies {
		rows = append(rows, replyRow{
			ReplyView: rv,
			Body:      markdown.Render(rv.Content),
			CanDelete: grouppolicy.CanDeleteContent(actor, role, rv.UserID),
		})
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "discussion_thread", threadData{
		BaseVM:         viewdata.NewBaseVM(r, d.Title, base(g)),
		Group:          g,
		Discussion:     d,
		Body:           markdown.Render(d.Content),
		Replies:        rows,
		CanParticipate: grouppolicy.CanParticipate(actor, role),
		CanManage:      grouppolicy.CanManage(actor, role),
		CanDelete:      grouppolicy.CanDeleteContent(actor, role, d.UserID),
		ReplyDraft:     draft,
		ReplyError:     replyErr,
	})
}

// HandleReply handles POST /groups/{id}/discussions/{discussionID}/replies.
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "post reply", err, "/groups")
		return
	}
	did, err := shared.IDParam(r, "discussionID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "post reply", err, "/groups/"+gid.Hex())
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/"+gid.Hex())
		return
	}
	body := r.PostFormValue("content")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Content.PostReply(ctx, actor, gid, did, body); err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			h.renderThread(w, r, http.StatusUnprocessableEntity, body, fields["content"])
			return
		}
		h.ErrLog.HandleServiceError(w, r, "post reply", err, "/groups/"+gid.Hex()+"/discussions/"+did.Hex())
		return
	}
	shared.SeeOther(w, r, "/groups/"+gid.Hex()+"/discussions/"+did.Hex()+"#replies")
}

// HandlePin handles POST /groups/{id}/discussions/{discussionID}/pin with
// pinned=true|false.
func (h *Handler) HandlePin(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, did, ok := h.ids(w, r, "pin discussion")
	if !ok {
		return
	}
	pinned, _ := strconv.ParseBool(r.PostFormValue("pinned"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	back := "/groups/" + gid.Hex() + "/discussions"
	if err := h.Content.SetPinned(ctx, actor, gid, did, pinned); err != nil {
		h.ErrLog.HandleServiceError(w, r, "pin discussion", err, back)
		return
	}
	shared.SeeOther(w, r, back)
}

// HandleDelete handles POST /groups/{id}/discussions/{discussionID}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, did, ok := h.ids(w, r, "delete discussion")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	back := "/groups/" + gid.Hex() + "/discussions"
	if err := h.Content.DeleteDiscussion(ctx, actor, gid, did); err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete discussion", err, back)
		return
	}
	shared.SeeOther(w, r, back)
}

// HandleDeleteReply handles POST /groups/{id}/discussions/replies/{replyID}/delete.
func (h *Handler) HandleDeleteReply(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete reply", err, "/groups")
		return
	}
	rid, err := shared.IDParam(r, "replyID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete reply", err, "/groups/"+gid.Hex())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Content.DeleteReply(ctx, actor, gid, rid); err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete reply", err, "/groups/"+gid.Hex()+"/discussions")
		return
	}
	back := r.PostFormValue("return")
	if back == "" {
		back = "/groups/" + gid.Hex() + "/discussions"
	}
	shared.SeeOther(w, r, safeBack(back, gid))
}

func (h *Handler) ids(w http.ResponseWriter, r *http.Request, op string) (gid, did primitive.ObjectID, ok bool) {
	var err error
	if gid, err = shared.IDParam(r, "id"); err != nil {
		h.ErrLog.HandleServiceError(w, r, op, err, "/groups")
		return gid, did, false
	}
	if did, err = shared.IDParam(r, "discussionID"); err != nil {
		h.ErrLog.HandleServiceError(w, r, op, err, "/groups/"+gid.Hex())
		return gid, did, false
	}
	if err = r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/"+gid.Hex())
		return gid, did, false
	}
	return gid, did, true
}

// safeBack keeps the post-delete redirect on this site.
func safeBack(ret string, gid primitive.ObjectID) string {
	return urlutil.SafeReturn(ret, "", "/groups/"+gid.Hex()+"/discussions")
}
