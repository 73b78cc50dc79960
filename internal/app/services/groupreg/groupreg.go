// Package groupreg creates, edits and deletes study groups.
package groupreg

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/services/cascade"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/joincode"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Input holds the editable fields of a group.
type Input struct {
	Name        string `form:"name" validate:"required,max=100,groupname" label:"Group name"`
	Description string `form:"description" validate:"min=20,max=500" label:"Description"`
	Subject     string `form:"subject" validate:"max=50" label:"Subject"`
	IsPrivate   bool   `form:"is_private"`
}

func (in *Input) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = normalize.Text(in.Description)
	in.Subject = strings.TrimSpace(in.Subject)
}

// Deps wires the registry to its collaborators. Audit, Metrics and Rooms
// are optional.
type Deps struct {
	DB      *mongo.Database
	Runner  *txn.Runner
	Cascade *cascade.Cascade
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Rooms   realtime.Rooms
	Log     *zap.Logger
}

// Service is the group registry.
type Service struct {
	db          *mongo.Database
	runner      *txn.Runner
	cascade     *cascade.Cascade
	groups      *groupstore.Store
	memberships *membershipstore.Store
	audit       *auditlog.Logger
	metrics     *metrics.Metrics
	rooms       realtime.Rooms
	log         *zap.Logger
	now         func() time.Time
}

// New builds the registry.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Rooms == nil {
		d.Rooms = realtime.Nop{}
	}
	if d.Cascade == nil {
		d.Cascade = cascade.New(d.DB, nil, d.Log)
	}
	return &Service{
		db:          d.DB,
		runner:      d.Runner,
		cascade:     d.Cascade,
		groups:      groupstore.New(d.DB),
		memberships: membershipstore.New(d.DB),
		audit:       d.Audit,
		metrics:     d.Metrics,
		rooms:       d.Rooms,
		log:         d.Log,
		now:         time.Now,
	}
}

// Get loads a group or returns apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (models.StudyGroup, error) {
	g, err := s.groups.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return g, apperr.NotFound("group")
	}
	return g, err
}

// Create validates in, then inserts the group and the creator's owner
// membership in one transaction. Private groups get a fresh join code.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in Input) (models.StudyGroup, error) {
	if !actor.CanWrite {
		return models.StudyGroup{}, apperr.ErrInactiveAccount
	}
	in.trim()
	if res := inputval.Validate(in); res.HasErrors() {
		return models.StudyGroup{}, res
	}
	taken, err := s.groups.NameTaken(ctx, in.Name, primitive.NilObjectID)
	if err != nil {
		return models.StudyGroup{}, err
	}
	if taken {
		return models.StudyGroup{}, apperr.Conflict("a group with this name already exists")
	}

	g := models.StudyGroup{
		ID:          primitive.NewObjectID(),
		Name:        in.Name,
		Description: in.Description,
		Subject:     in.Subject,
		IsPrivate:   in.IsPrivate,
		CreatedBy:   actor.ID,
	}
	if in.IsPrivate {
		if g.JoinCode, err = joincode.New(); err != nil {
			return models.StudyGroup{}, err
		}
	}

	var created models.StudyGroup
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.groups.Create(ctx, g); err != nil {
			return err
		}
		_, err = s.memberships.Add(ctx, created.ID, actor.ID, models.MemberRoleOwner)
		return err
	})
	if errors.Is(err, groupstore.ErrDuplicateGroupName) {
		return models.StudyGroup{}, apperr.Conflict("a group with this name already exists")
	}
	if err != nil {
		return models.StudyGroup{}, err
	}

	s.audit.GroupEvent(ctx, audit.EventGroupCreated, actor.ID, created.ID, created.Name)
	s.metrics.Group("created")
	s.log.Info("group created", zap.String("group_id", created.ID.Hex()), zap.String("actor", actor.ID.Hex()))
	return created, nil
}

// Edit updates name, description and subject. Admins and the group's
// owner may edit. IsPrivate is ignored; use TogglePrivacy.
func (s *Service) Edit(ctx context.Context, actor authz.Actor, id primitive.ObjectID, in Input) (models.StudyGroup, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return g, err
	}
	role, err := grouppolicy.MemberRole(ctx, s.db, id, actor.ID)
	if err != nil {
		return g, err
	}
	if !grouppolicy.CanChangeRoles(actor, role) {
		return g, apperr.Forbidden("only an admin or the group owner may edit the group")
	}

	in.trim()
	if res := inputval.Validate(in); res.HasErrors() {
		return g, res
	}
	taken, err := s.groups.NameTaken(ctx, in.Name, id)
	if err != nil {
		return g, err
	}
	if taken {
		return g, apperr.Conflict("a group with this name already exists")
	}

	err = s.groups.UpdateInfo(ctx, id, groupstore.InfoUpdate{
		Name:        in.Name,
		Description: in.Description,
		Subject:     in.Subject,
	})
	switch {
	case errors.Is(err, groupstore.ErrDuplicateGroupName):
		return g, apperr.Conflict("a group with this name already exists")
	case errors.Is(err, mongo.ErrNoDocuments):
		return g, apperr.NotFound("group")
	case err != nil:
		return g, err
	}

	s.audit.GroupEvent(ctx, audit.EventGroupUpdated, actor.ID, id, in.Name)
	s.metrics.Group("updated")
	g.Name, g.Description, g.Subject = in.Name, in.Description, in.Subject
	return g, nil
}

// Delete removes the group and all of its content in one transaction.
// Only admins may delete. A failed cascade leaves everything in place and
// surfaces as apperr.ErrDeletion.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id primitive.ObjectID) error {
	if !actor.IsAdmin() || !actor.CanWrite {
		return apperr.Forbidden("only an admin may delete a group")
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var res cascade.Result
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.cascade.DeleteGroup(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("group")
		}
		s.log.Error("group cascade failed", zap.String("group_id", id.Hex()), zap.Error(err))
		return apperr.Deletion(err)
	}
	s.cascade.RemoveMedia(res.MediaPaths)
	s.rooms.CloseGroup(id.Hex())

	s.audit.GroupEvent(ctx, audit.EventGroupDeleted, actor.ID, id, g.Name)
	s.metrics.Group("deleted")
	s.log.Info("group deleted",
		zap.String("group_id", id.Hex()),
		zap.Int64("messages", res.Messages),
		zap.Int64("discussions", res.Discussions),
		zap.Int64("replies", res.Replies),
		zap.Int64("sessions", res.Sessions))
	return nil
}

// TogglePrivacy flips is_private and returns the new value. An existing
// join code is kept when a group goes public so that making it private
// again restores the same code; a group that never had one gets one.
func (s *Service) TogglePrivacy(ctx context.Context, actor authz.Actor, id primitive.ObjectID) (bool, error) {
	if !actor.IsAdmin() || !actor.CanWrite {
		return false, apperr.Forbidden("only an admin may change group privacy")
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	private := !g.IsPrivate
	code := ""
	if private && g.JoinCode == "" {
		if code, err = joincode.New(); err != nil {
			return false, err
		}
	}
	if err := s.groups.SetPrivacy(ctx, id, private, code); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, apperr.NotFound("group")
		}
		return false, err
	}
	s.audit.PrivacyToggled(ctx, actor.ID, id, private)
	s.metrics.Group("privacy_toggled")
	return private, nil
}
