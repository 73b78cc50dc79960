// Package reports generates and stores administrative reports.
package reports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	auditstore "github.com/dalemusser/studyhub/internal/app/store/audit"
	discussionstore "github.com/dalemusser/studyhub/internal/app/store/discussions"
	downloadstore "github.com/dalemusser/studyhub/internal/app/store/downloads"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	messagestore "github.com/dalemusser/studyhub/internal/app/store/messages"
	notificationstore "github.com/dalemusser/studyhub/internal/app/store/notifications"
	"github.com/dalemusser/studyhub/internal/app/store/queries/reportqueries"
	reportstore "github.com/dalemusser/studyhub/internal/app/store/reports"
	studysessionstore "github.com/dalemusser/studyhub/internal/app/store/studysessions"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ListLimit caps the report index.
const ListLimit = 200

// Deps wires the report service.
type Deps struct {
	DB    *mongo.Database
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// Service generates reports.
type Service struct {
	db            *mongo.Database
	reports       *reportstore.Store
	users         *userstore.Store
	groups        *groupstore.Store
	messages      *messagestore.Store
	discussions   *discussionstore.Store
	downloads     *downloadstore.Store
	sessions      *studysessionstore.Store
	notifications *notificationstore.Store
	events        *auditstore.Store
	audit         *auditlog.Logger
	log           *zap.Logger
}

// New builds the report service.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{
		db:            d.DB,
		reports:       reportstore.New(d.DB),
		users:         userstore.New(d.DB),
		groups:        groupstore.New(d.DB),
		messages:      messagestore.New(d.DB),
		discussions:   discussionstore.New(d.DB),
		downloads:     downloadstore.New(d.DB),
		sessions:      studysessionstore.New(d.DB),
		notifications: notificationstore.New(d.DB),
		events:        auditstore.New(d.DB),
		audit:         d.Audit,
		log:           d.Log,
	}
}

// UserActivity is the user_activity payload.
type UserActivity struct {
	Registrations     int64 `bson:"registrations" json:"registrations"`
	Logins            int64 `bson:"logins" json:"logins"`
	FailedLogins      int64 `bson:"failed_logins" json:"failed_logins"`
	MessagesPosted    int64 `bson:"messages_posted" json:"messages_posted"`
	DiscussionsPosted int64 `bson:"discussions_started" json:"discussions_started"`
}

// GroupEngagement is the group_engagement payload.
type GroupEngagement struct {
	Groups []reportqueries.EngagementRow `bson:"groups" json:"groups"`
}

// ResourceDownloads is the resource_downloads payload.
type ResourceDownloads struct {
	Total      int64            `bson:"total" json:"total"`
	ByCategory map[string]int64 `bson:"by_category" json:"by_category"`
}

// SystemUsage is the system_usage payload.
type SystemUsage struct {
	UsersByStatus map[string]int64 `bson:"users_by_status" json:"users_by_status"`
	Groups        int64            `bson:"groups" json:"groups"`
	Messages      int64            `bson:"messages" json:"messages"`
	Discussions   int64            `bson:"discussions" json:"discussions"`
	Sessions      int64            `bson:"sessions" json:"sessions"`
	Notifications int64            `bson:"notifications" json:"notifications"`
}

// Request selects a report. End is the last day included.
type Request struct {
	Type  string
	Start time.Time
	End   time.Time
}

func (req Request) validate() error {
	ve := &apperr.ValidationError{}
	if !slices.Contains(models.ReportTypes, req.Type) {
		ve.Add("report_type", "Choose a report type.")
	}
	if req.Start.IsZero() {
		ve.Add("start_date", "Start date is required.")
	}
	if req.End.IsZero() {
		ve.Add("end_date", "End date is required.")
	}
	if !req.Start.IsZero() && !req.End.IsZero() && req.End.Before(req.Start) {
		ve.Add("end_date", "End date must not be before the start date.")
	}
	return ve.Err()
}

func requireAdmin(actor authz.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("reports are available to administrators only")
	}
	return nil
}

// Generate computes and stores a report. The range covers whole days from
// Start through End.
func (s *Service) Generate(ctx context.Context, actor authz.Actor, req Request) (models.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Report{}, err
	}
	if !actor.CanWrite {
		return models.Report{}, apperr.ErrInactiveAccount
	}
	if err := req.validate(); err != nil {
		return models.Report{}, err
	}

	start := day(req.Start)
	end := day(req.End).AddDate(0, 0, 1)

	var payload any
	var err error
	switch req.Type {
	case models.ReportUserActivity:
		payload, err = s.userActivity(ctx, start, end)
	case models.ReportGroupEngagement:
		payload, err = s.groupEngagement(ctx, start, end)
	case models.ReportResourceDownloads:
		payload, err = s.resourceDownloads(ctx, start, end)
	case models.ReportSystemUsage:
		payload, err = s.systemUsage(ctx)
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("compute %s report: %w", req.Type, err)
	}
	data, err := toDoc(payload)
	if err != nil {
		return models.Report{}, err
	}

	r, err := s.reports.Create(ctx, models.Report{
		AdminID:   actor.ID,
		Type:      req.Type,
		StartDate: start,
		EndDate:   day(req.End),
		Data:      data,
	})
	if err != nil {
		return models.Report{}, err
	}
	s.audit.Report(ctx, actor.ID, r.ID, auditstore.EventReportGenerated, r.Type)
	return r, nil
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) userActivity(ctx context.Context, start, end time.Time) (UserActivity, error) {
	var out UserActivity
	var err error
	if out.Registrations, err = s.users.CountCreatedBetween(ctx, start, end); err != nil {
		return out, err
	}
	last := end.Add(-time.Nanosecond)
	if out.Logins, err = s.events.CountByFilter(ctx, auditstore.QueryFilter{
		EventType: auditstore.EventLoginSuccess, StartTime: &start, EndTime: &last,
	}); err != nil {
		return out, err
	}
	for _, ev := range []string{auditstore.EventLoginFailedUserNotFound, auditstore.EventLoginFailedWrongPassword} {
		n, err := s.events.CountByFilter(ctx, auditstore.QueryFilter{EventType: ev, StartTime: &start, EndTime: &last})
		if err != nil {
			return out, err
		}
		out.FailedLogins += n
	}
	if out.MessagesPosted, err = s.messages.CountBetween(ctx, start, end); err != nil {
		return out, err
	}
	out.DiscussionsPosted, err = s.discussions.CountBetween(ctx, start, end)
	return out, err
}

func (s *Service) groupEngagement(ctx context.Context, start, end time.Time) (GroupEngagement, error) {
	rows, err := reportqueries.GroupEngagement(ctx, s.db, start, end)
	return GroupEngagement{Groups: rows}, err
}

func (s *Service) resourceDownloads(ctx context.Context, start, end time.Time) (ResourceDownloads, error) {
	by, err := s.downloads.CountByCategoryBetween(ctx, start, end)
	if err != nil {
		return ResourceDownloads{}, err
	}
	out := ResourceDownloads{ByCategory: by}
	for _, n := range by {
		out.Total += n
	}
	return out, nil
}

func (s *Service) systemUsage(ctx context.Context) (SystemUsage, error) {
	var out SystemUsage
	var err error
	if out.UsersByStatus, err = s.users.CountByStatus(ctx, ""); err != nil {
		return out, err
	}
	if out.Groups, err = s.groups.Count(ctx, groupstore.ListFilter{}); err != nil {
		return out, err
	}
	if out.Messages, err = s.messages.Count(ctx); err != nil {
		return out, err
	}
	if out.Discussions, err = s.discussions.Count(ctx); err != nil {
		return out, err
	}
	if out.Sessions, err = s.sessions.Count(ctx); err != nil {
		return out, err
	}
	out.Notifications, err = s.notifications.Count(ctx)
	return out, err
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode reads a stored report payload into one of the payload types.
func Decode(r models.Report, into any) error {
	raw, err := bson.Marshal(r.Data)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, into)
}

// List returns stored reports without their payloads, newest first.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]models.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.reports.List(ctx, ListLimit)
}

// Get returns one report.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id primitive.ObjectID) (models.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Report{}, err
	}
	r, err := s.reports.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r, apperr.NotFound("report")
	}
	return r, err
}

// Delete removes a report.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id primitive.ObjectID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !actor.CanWrite {
		return apperr.ErrInactiveAccount
	}
	r, err := s.reports.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("report")
	}
	if err != nil {
		return err
	}
	if _, err := s.reports.Delete(ctx, id); err != nil {
		return apperr.Deletion(err)
	}
	s.audit.Report(ctx, actor.ID, id, auditstore.EventReportDeleted, r.Type)
	return nil
}
