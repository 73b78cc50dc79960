// internal/app/features/reports/csv.go
package reports

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// ServeCSV handles GET /reports/{id}/csv and streams the report payload
// as a two-dimensional table.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	vd, ok := h.load(w, r)
	if !ok {
		return
	}
	header, rows := table(vd)

	filename := fmt.Sprintf("%s_%s_%s.csv",
		vd.Report.Type,
		vd.Report.StartDate.Format("20060102"),
		vd.Report.EndDate.Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM so Excel treats it as Unicode
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	_ = cw.Write(header)
	for _, row := range rows {
		_ = cw.Write(row)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Log.Warn("report CSV write failed", zap.String("report_id", vd.Report.ID.Hex()), zap.Error(err))
		return
	}
	h.Log.Info("report CSV exported", zap.String("report_id", vd.Report.ID.Hex()), zap.Int("rows", len(rows)))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// table flattens whichever payload vd carries.
func table(vd viewData) ([]string, [][]string) {
	switch {
	case vd.UserActivity != nil:
		u := vd.UserActivity
		return []string{"metric", "value"}, [][]string{
			{"registrations", itoa(u.Registrations)},
			{"logins", itoa(u.Logins)},
			{"failed_logins", itoa(u.FailedLogins)},
			{"messages_posted", itoa(u.MessagesPosted)},
			{"discussions_started", itoa(u.DiscussionsPosted)},
		}
	case vd.GroupEngagement != nil:
		rows := make([][]string, 0, len(vd.GroupEngagement.Groups))
		for _, g := range vd.GroupEngagement.Groups {
			rows = append(rows, []string{
				g.GroupName, itoa(g.Messages), itoa(g.Discussions), itoa(g.Replies), itoa(g.NewMembers),
			})
		}
		return []string{"group", "messages", "discussions", "replies", "new_members"}, rows
	case vd.ResourceDownloads != nil:
		d := vd.ResourceDownloads
		cats := make([]string, 0, len(d.ByCategory))
		for c := range d.ByCategory {
			cats = append(cats, c)
		}
		slices.Sort(cats)
		rows := make([][]string, 0, len(cats)+1)
		for _, c := range cats {
			rows = append(rows, []string{c, itoa(d.ByCategory[c])})
		}
		rows = append(rows, []string{"total", itoa(d.Total)})
		return []string{"category", "downloads"}, rows
	case vd.SystemUsage != nil:
		s := vd.SystemUsage
		statuses := make([]string, 0, len(s.UsersByStatus))
		for st := range s.UsersByStatus {
			statuses = append(statuses, st)
		}
		slices.Sort(statuses)
		rows := make([][]string, 0, len(statuses)+5)
		for _, st := range statuses {
			rows = append(rows, []string{"users_" + st, itoa(s.UsersByStatus[st])})
		}
		rows = append(rows,
			[]string{"groups", itoa(s.Groups)},
			[]string{"messages", itoa(s.Messages)},
			[]string{"discussions", itoa(s.Discussions)},
			[]string{"sessions", itoa(s.Sessions)},
			[]string{"notifications", itoa(s.Notifications)},
		)
		return []string{"metric", "value"}, rows
	}
	return []string{"metric", "value"}, nil
}
