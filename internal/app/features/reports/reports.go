// internal/app/features/reports/reports.go
package reports

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	reportsvc "github.com/dalemusser/studyhub/internal/app/services/reports"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// dateLayout is the value format of <input type="date">.
const dateLayout = "2006-01-02"

// ServeList handles GET /reports.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Reports.List(ctx, actor)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "list reports", err, "/admin")
		return
	}
	rows := make([]reportRow, 0, len(list))
	for _, rp := range list {
		rows = append(rows, reportRow{Report: rp, Label: typeLabel(rp.Type)})
	}
	templates.Render(w, r, "reports_list", listData{
		BaseVM:  viewdata.NewBaseVM(r, "Reports", "/admin"),
		Reports: rows,
	})
}

// ServeNew handles GET /reports/new. The range defaults to the last 30 days.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.Actor(w, r); !ok {
		return
	}
	today := time.Now().UTC()
	templates.Render(w, r, "report_form", formData{
		BaseVM:    viewdata.NewBaseVM(r, "Generate report", "/reports"),
		Types:     typeOptions,
		Type:      models.ReportUserActivity,
		StartDate: today.AddDate(0, 0, -30).Format(dateLayout),
		EndDate:   today.Format(dateLayout),
	})
}

// parseDate returns the zero time for blank input so the service reports
// the field as required.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	return t, err == nil
}

// HandleGenerate handles POST /reports.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/reports")
		return
	}
	data := formData{
		BaseVM:    viewdata.NewBaseVM(r, "Generate report", "/reports"),
		Types:     typeOptions,
		Type:      strings.TrimSpace(r.PostFormValue("report_type")),
		StartDate: r.PostFormValue("start_date"),
		EndDate:   r.PostFormValue("end_date"),
	}

	ve := &apperr.ValidationError{}
	start, ok := parseDate(data.StartDate)
	if !ok {
		ve.Add("start_date", "Enter a valid date.")
	}
	end, ok := parseDate(data.EndDate)
	if !ok {
		ve.Add("end_date", "Enter a valid date.")
	}
	err := ve.Err()
	if err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
		defer cancel()

		var rp models.Report
		rp, err = h.Reports.Generate(ctx, actor, reportsvc.Request{Type: data.Type, Start: start, End: end})
		if err == nil {
			h.Log.Info("report generated",
				zap.String("report_id", rp.ID.Hex()),
				zap.String("type", rp.Type),
				zap.String("admin_id", actor.ID.Hex()))
			shared.SeeOther(w, r, "/reports/"+rp.ID.Hex())
			return
		}
	}

	if fields, ok := shared.FieldErrors(err); ok {
		data.Errors = fields
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Render(w, r, "report_form", data)
		return
	}
	h.ErrLog.HandleServiceError(w, r, "generate report", err, "/reports")
}

// load fetches the {id} report and decodes its payload.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (viewData, bool) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return viewData{}, false
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load report", err, "/reports")
		return viewData{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rp, err := h.Reports.Get(ctx, actor, id)
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "load report", err, "/reports")
		return viewData{}, false
	}

	vd := viewData{Report: rp, Label: typeLabel(rp.Type)}
	switch rp.Type {
	case models.ReportUserActivity:
		vd.UserActivity = &reportsvc.UserActivity{}
		err = reportsvc.Decode(rp, vd.UserActivity)
	case models.ReportGroupEngagement:
		vd.GroupEngagement = &reportsvc.GroupEngagement{}
		err = reportsvc.Decode(rp, vd.GroupEngagement)
	case models.ReportResourceDownloads:
		vd.ResourceDownloads = &reportsvc.ResourceDownloads{}
		err = reportsvc.Decode(rp, vd.ResourceDownloads)
	case models.ReportSystemUsage:
		vd.SystemUsage = &reportsvc.SystemUsage{}
		err = reportsvc.Decode(rp, vd.SystemUsage)
	default:
		err = fmt.Errorf("unknown report type %q", rp.Type)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "decode report failed", err, "This report could not be read.", "/reports")
		return viewData{}, false
	}
	return vd, true
}

// ServeView handles GET /reports/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	vd, ok := h.load(w, r)
	if !ok {
		return
	}
	if shared.WantsJSON(r) {
		uierrors.WriteJSON(w, http.StatusOK, vd.Report)
		return
	}
	vd.BaseVM = viewdata.NewBaseVM(r, vd.Label+" report", "/reports")
	templates.Render(w, r, "report_view", vd)
}

// HandleDelete handles POST /reports/{id}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.IDParam(r, "id")
	if err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete report", err, "/reports")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Reports.Delete(ctx, actor, id); err != nil {
		h.ErrLog.HandleServiceError(w, r, "delete report", err, "/reports")
		return
	}
	shared.SeeOther(w, r, "/reports")
}
