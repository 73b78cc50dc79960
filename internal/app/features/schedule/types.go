// internal/app/features/schedule/types.go
package schedule

import (
	schedulesvc "github.com/dalemusser/studyhub/internal/app/services/schedule"
	"github.com/dalemusser/studyhub/internal/app/system/timezones"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
)

type agendaData struct {
	viewdata.BaseVM

	Upcoming []schedulesvc.SessionView
	Past     []schedulesvc.SessionView
}

type sessionFormData struct {
	viewdata.BaseVM

	Group       models.StudyGroup
	Title       string
	Description string
	StartsAt    string
	MeetingLink string
	Zone        string
	Zones       []timezones.ZoneGroup
	Errors      map[string]string
}
