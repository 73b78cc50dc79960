// Package schedule plans study sessions and manages per-user reminders.
package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	reminderstore "github.com/dalemusser/studyhub/internal/app/store/reminders"
	studysessionstore "github.com/dalemusser/studyhub/internal/app/store/studysessions"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ListLimit caps each upcoming or past list.
const ListLimit = 100

// Service schedules sessions.
type Service struct {
	db          *mongo.Database
	runner      *txn.Runner
	groups      *groupstore.Store
	memberships *membershipstore.Store
	sessions    *studysessionstore.Store
	reminders   *reminderstore.Store
	log         *zap.Logger
	now         func() time.Time
}

// Deps wires the scheduler.
type Deps struct {
	DB     *mongo.Database
	Runner *txn.Runner
	Log    *zap.Logger
}

// New builds the scheduler service.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{
		db:          d.DB,
		runner:      d.Runner,
		groups:      groupstore.New(d.DB),
		memberships: membershipstore.New(d.DB),
		sessions:    studysessionstore.New(d.DB),
		reminders:   reminderstore.New(d.DB),
		log:         d.Log,
		now:         time.Now,
	}
}

// SessionInput describes a session to schedule.
type SessionInput struct {
	Title       string    `form:"title" validate:"required,max=150" label:"Title"`
	Description string    `form:"description" validate:"max=1000" label:"Description"`
	StartsAt    time.Time `form:"starts_at" label:"Date and time"`
	MeetingLink string    `form:"meeting_link" validate:"omitempty,httpurl" label:"Meeting link"`
}

// SessionView is a session with the group name and the viewer's reminder
// state.
type SessionView struct {
	models.StudySession
	GroupName  string
	ReminderOn bool
}

// Create schedules a session in the group. Admins, owners and moderators
// may schedule; the start must be in the future.
func (s *Service) Create(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID, in SessionInput) (models.StudySession, error) {
	if err := s.requireManage(ctx, actor, groupID); err != nil {
		return models.StudySession{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = normalize.Text(in.Description)
	in.MeetingLink = strings.TrimSpace(in.MeetingLink)

	res := inputval.Validate(in)
	if in.StartsAt.IsZero() {
		res.Add("starts_at", "Date and time is required.")
	} else if !in.StartsAt.After(s.now()) {
		res.Add("starts_at", "Date and time must be in the future.")
	}
	if res.HasErrors() {
		return models.StudySession{}, res
	}

	return s.sessions.Create(ctx, models.StudySession{
		GroupID:     groupID,
		Title:       in.Title,
		Description: in.Description,
		StartsAt:    in.StartsAt.UTC(),
		MeetingLink: in.MeetingLink,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now().UTC(),
	})
}

func (s *Service) requireManage(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID) error {
	if !actor.CanWrite {
		return apperr.ErrInactiveAccount
	}
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("group")
		}
		return err
	}
	role, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return err
	}
	if !grouppolicy.CanManage(actor, role) {
		return apperr.Forbidden("only moderators may schedule sessions")
	}
	return nil
}

// Delete cancels a session and drops its reminders.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, sessionID primitive.ObjectID) error {
	ss, err := s.session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, actor, ss.GroupID); err != nil {
		return err
	}
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if _, err := s.reminders.DeleteBySession(ctx, sessionID); err != nil {
			return err
		}
		_, err := s.sessions.Delete(ctx, sessionID)
		return err
	})
	if err != nil {
		s.log.Error("delete session failed", zap.String("session_id", sessionID.Hex()), zap.Error(err))
		return apperr.Deletion(err)
	}
	return nil
}

func (s *Service) session(ctx context.Context, id primitive.ObjectID) (models.StudySession, error) {
	ss, err := s.sessions.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ss, apperr.NotFound("session")
	}
	return ss, err
}

// Agenda returns upcoming and past sessions across the actor's groups
// (every group for admins).
func (s *Service) Agenda(ctx context.Context, actor authz.Actor) (upcoming, past []SessionView, err error) {
	var gids []primitive.ObjectID
	if actor.IsAdmin() {
		gs, err := s.groups.List(ctx, groupstore.ListFilter{})
		if err != nil {
			return nil, nil, err
		}
		for _, g := range gs {
			gids = append(gids, g.ID)
		}
	} else if gids, err = s.memberships.GroupIDsForUser(ctx, actor.ID); err != nil {
		return nil, nil, err
	}
	return s.lists(ctx, actor, gids)
}

// ForGroup returns one group's upcoming and past sessions.
func (s *Service) ForGroup(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID) (upcoming, past []SessionView, err error) {
	role, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	if !grouppolicy.CanView(actor, role) {
		return nil, nil, apperr.ErrNotMember
	}
	return s.lists(ctx, actor, []primitive.ObjectID{groupID})
}

func (s *Service) lists(ctx context.Context, actor authz.Actor, gids []primitive.ObjectID) ([]SessionView, []SessionView, error) {
	now := s.now()
	up, err := s.sessions.ListUpcoming(ctx, gids, now, ListLimit)
	if err != nil {
		return nil, nil, err
	}
	past, err := s.sessions.ListPast(ctx, gids, now, ListLimit)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(up))
	for _, ss := range up {
		ids = append(ids, ss.ID)
	}
	on, err := s.reminders.EnabledFor(ctx, actor.ID, ids)
	if err != nil {
		return nil, nil, err
	}
	names, err := s.groupNames(ctx, gids)
	if err != nil {
		return nil, nil, err
	}

	wrap := func(in []models.StudySession) []SessionView {
		out := make([]SessionView, 0, len(in))
		for _, ss := range in {
			out = append(out, SessionView{StudySession: ss, GroupName: names[ss.GroupID], ReminderOn: on[ss.ID]})
		}
		return out
	}
	return wrap(up), wrap(past), nil
}

func (s *Service) groupNames(ctx context.Context, gids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(gids))
	if len(gids) == 0 {
		return out, nil
	}
	gs, err := s.groups.List(ctx, groupstore.ListFilter{IDs: gids})
	if err != nil {
		return nil, err
	}
	for _, g := range gs {
		out[g.ID] = g.Name
	}
	return out, nil
}

// ToggleReminder flips the actor's reminder for an upcoming session and
// reports whether it is now enabled. Only members of the session's group
// may set reminders.
func (s *Service) ToggleReminder(ctx context.Context, actor authz.Actor, sessionID primitive.ObjectID) (bool, error) {
	if !actor.CanWrite {
		return false, apperr.ErrInactiveAccount
	}
	ss, err := s.session(ctx, sessionID)
	if err != nil {
		return false, err
	}
	member, err := s.memberships.Exists(ctx, ss.GroupID, actor.ID)
	if err != nil {
		return false, err
	}
	if !member {
		return false, apperr.ErrNotMember
	}
	if !ss.StartsAt.After(s.now()) {
		return false, apperr.Validation("session", "Reminders are only available for upcoming sessions.")
	}
	rm, err := s.reminders.Toggle(ctx, ss, actor.ID)
	if err != nil {
		return false, err
	}
	return rm.Enabled, nil
}
