package reports

import (
	reportsvc "github.com/dalemusser/studyhub/internal/app/services/reports"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

// typeOption is one entry of the report-type select.
type typeOption struct {
	Value string
	Label string
}

var typeOptions = []typeOption{
	{models.ReportUserActivity, "User activity"},
	{models.ReportGroupEngagement, "Group engagement"},
	{models.ReportResourceDownloads, "Resource downloads"},
	{models.ReportSystemUsage, "System usage"},
}

func typeLabel(t string) string {
	for _, o := range typeOptions {
		if o.Value == t {
			return o.Label
		}
	}
	return t
}

type reportRow struct {
	models.Report
	Label string
}

type listData struct {
	viewdata.BaseVM

	Reports []reportRow
}

type formData struct {
	viewdata.BaseVM

	Types     []typeOption
	Type      string
	StartDate string
	EndDate   string
	Errors    map[string]string
}

// viewData carries exactly one decoded payload, chosen by Report.Type.
type viewData struct {
	viewdata.BaseVM

	Report models.Report
	Label  string

	UserActivity      *reportsvc.UserActivity
	GroupEngagement   *reportsvc.GroupEngagement
	ResourceDownloads *reportsvc.ResourceDownloads
	SystemUsage       *reportsvc.SystemUsage
}
