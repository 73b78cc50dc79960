// internal/app/features/schedule/schedule.go
package schedule

import (
	"context"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	schedulesvc "github.com/dalemusser/studyhub/internal/app/services/schedule"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/timezones"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// datetimeLayout is the value format of <input type="datetime-local">.
const datetimeLayout = "2006-01-02T15:04"

// ServeAgenda handles GET /sessions.
func (h *Handler) ServeAgenda(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	up, past, err := h.Schedule.Agenda(ctx, actor)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load agenda", err, "/dashboard")
		return
	}
	templates.Render(w, r, "session_agenda", agendaData{
		BaseVM:   viewdata.NewBaseVM(r, "Study sessions", "/dashboard"),
		Upcoming: up,
		Past:     past,
	})
}

func (h *Handler) formData(r *http.Request, g models.StudyGroup) sessionFormData {
	zones, err := timezones.Groups()
	if err != nil {
		h.Log.Warn("timezone list unavailable", zap.Error(err))
	}
	return sessionFormData{
		BaseVM: viewdata.NewBaseVM(r, "Schedule a session", "/groups/"+g.ID.Hex()),
		Group:  g,
		Zone:   h.DefaultZone,
		Zones:  zones,
	}
}

// ServeNew handles GET /groups/{id}/sessions/new.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load group", err, "/groups")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Registry.Get(ctx, gid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load group", err, "/groups")
		return
	}
	templates.Render(w, r, "session_form", h.formData(r, g))
}

// parseStart reads a datetime-local value in the named zone. A blank value
// yields the zero time so the service reports it as missing.
func parseStart(value, zone string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	loc, err := timezones.Location(zone)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(datetimeLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HandleCreate handles POST /groups/{id}/sessions.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	gid, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "schedule session", err, "/groups")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/groups/"+gid.Hex())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Registry.Get(ctx, gid)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load group", err, "/groups")
		return
	}

	data := h.formData(r, g)
	data.Title = r.PostFormValue("title")
	data.Description = r.PostFormValue("description")
	data.StartsAt = r.PostFormValue("starts_at")
	data.MeetingLink = r.PostFormValue("meeting_link")
	if z := strings.TrimSpace(r.PostFormValue("timezone")); z != "" {
		data.Zone = z
	}

	start, ok := parseStart(data.StartsAt, data.Zone)
	if !ok {
		data.Errors = map[string]string{"starts_at": "Enter a valid date and time."}
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "session_form", data)
		return
	}

	_, err = h.Schedule.Create(ctx, actor, gid, schedulesvc.SessionInput{
		Title:       data.Title,
		Description: data.Description,
		StartsAt:    start,
		MeetingLink: data.MeetingLink,
	})
	if err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			data.Errors = fields
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "session_form", data)
			return
		}
		h.ErrLog.HandleServiceError(w, r, "schedule session", err, "/groups/"+gid.Hex())
		return
	}
	shared.SeeOther(w, r, "/groups/"+gid.Hex()+"#sessions")
}

// HandleDelete handles POST /sessions/{sessionID}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	sid, err := shared.IDParam(r, "sessionID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete session", err, "/sessions")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Schedule.Delete(ctx, actor, sid); err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete session", err, "/sessions")
		return
	}
	shared.SeeOther(w, r, back(r))
}

// HandleToggleReminder handles POST /sessions/{sessionID}/reminder.
func (h *Handler) HandleToggleReminder(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	sid, err := shared.IDParam(r, "sessionID")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "toggle reminder", err, "/sessions")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	on, err := h.Schedule.ToggleReminder(ctx, actor, sid)
	if err != nil {
		if shared.WantsJSON(r) {
			h.ErrLog.JSONError(w, r, "toggle reminder", err)
			return
		}
		h.ErrLog.HandleServiceError(w, r, "toggle reminder", err, "/sessions")
		return
	}
	if shared.WantsJSON(r) {
		uierrors.WriteJSON(w, http.StatusOK, map[string]bool{"reminder_on": on})
		return
	}
	shared.SeeOther(w, r, back(r))
}

// back returns the page that posted the form, defaulting to the agenda.
func back(r *http.Request) string {
	return urlutil.SafeReturn(r.PostFormValue("return"), "", "/sessions")
}
