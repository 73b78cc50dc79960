// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
)

const pageSize = 50

// listItem represents a single audit event row for display.
type listItem struct {
	ID         string
	Timestamp  time.Time
	Category   string
	EventType  string
	ActorName  string // resolved from ActorID
	TargetName string // resolved from UserID
	GroupName  string // resolved from GroupID
	IP         string
	Success    bool
	Reason     string
	Details    map[string]string
}

// listData is the view model for the audit log list page.
type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Category  string
	EventType string
	UserID    string
	StartDate string
	EndDate   string

	// Filter options
	Categories []categoryOption
	EventTypes []string

	// Pagination
	Page       int
	TotalPages int
	Total      int64
	HasPrev    bool
	HasNext    bool
	PrevQuery  string
	NextQuery  string
}

// categoryOption represents a category for the filter dropdown.
type categoryOption struct {
	Value string
	Label string
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryAdmin, Label: "Administration"},
		{Value: audit.CategoryGroup, Label: "Groups"},
	}
}

var eventsByCategory = map[string][]string{
	audit.CategoryAuth: {
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventLogout,
		audit.EventRegistered,
		audit.EventPasswordChanged,
	},
	audit.CategoryAdmin: {
		audit.EventStudentApproved,
		audit.EventStudentBanned,
		audit.EventStudentActivated,
		audit.EventStudentDeleted,
		audit.EventPrivacyToggled,
		audit.EventReportGenerated,
		audit.EventReportDeleted,
	},
	audit.CategoryGroup: {
		audit.EventGroupCreated,
		audit.EventGroupUpdated,
		audit.EventGroupDeleted,
		audit.EventMemberJoined,
		audit.EventMemberLeft,
		audit.EventMemberRoleChanged,
	},
}

// eventTypesForCategory returns the event types for a category, or every
// event type when category is empty.
func eventTypesForCategory(category string) []string {
	if category != "" {
		return eventsByCategory[category]
	}
	var all []string
	for _, c := range allCategories() {
		all = append(all, eventsByCategory[c.Value]...)
	}
	return all
}

func validCategory(c string) bool {
	_, ok := eventsByCategory[c]
	return ok
}

func validEventType(category, eventType string) bool {
	for _, e := range eventTypesForCategory(category) {
		if e == eventType {
			return true
		}
	}
	return false
}
