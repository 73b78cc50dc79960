// Package ledger manages who belongs to a study group and in which role.
package ledger

import (
	"context"
	"errors"
	"slices"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/services/cascade"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	reminderstore "github.com/dalemusser/studyhub/internal/app/store/reminders"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/joincode"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Deps wires the ledger to its collaborators. Audit, Metrics and Rooms are
// optional.
type Deps struct {
	DB      *mongo.Database
	Runner  *txn.Runner
	Cascade *cascade.Cascade
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Rooms   realtime.Rooms
	Log     *zap.Logger
}

// Service is the membership ledger.
type Service struct {
	db          *mongo.Database
	runner      *txn.Runner
	cascade     *cascade.Cascade
	groups      *groupstore.Store
	memberships *membershipstore.Store
	reminders   *reminderstore.Store
	audit       *auditlog.Logger
	metrics     *metrics.Metrics
	rooms       realtime.Rooms
	log         *zap.Logger
}

// New builds the ledger.
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
		reminders:   reminderstore.New(d.DB),
		audit:       d.Audit,
		metrics:     d.Metrics,
		rooms:       d.Rooms,
		log:         d.Log,
	}
}

// Join adds the actor to a group as a member. Private groups require the
// exact join code.
func (s *Service) Join(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID, code string) (models.GroupMembership, error) {
	if !actor.CanWrite {
		return models.GroupMembership{}, apperr.ErrInactiveAccount
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupMembership{}, apperr.NotFound("group")
	}
	if err != nil {
		return models.GroupMembership{}, err
	}

	exists, err := s.memberships.Exists(ctx, groupID, actor.ID)
	if err != nil {
		return models.GroupMembership{}, err
	}
	if exists {
		return models.GroupMembership{}, apperr.ErrAlreadyMember
	}
	if g.IsPrivate && !joincode.Matches(g.JoinCode, code) {
		return models.GroupMembership{}, apperr.ErrInvalidCode
	}

	m, err := s.memberships.Add(ctx, groupID, actor.ID, models.MemberRoleMember)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		return models.GroupMembership{}, apperr.ErrAlreadyMember
	}
	if err != nil {
		return models.GroupMembership{}, err
	}

	s.audit.MembershipEvent(ctx, audit.EventMemberJoined, actor.ID, groupID, actor.ID, nil)
	s.metrics.Membership("joined")
	return m, nil
}

// LeaveResult reports what Leave did.
type LeaveResult struct {
	GroupDeleted bool
}

// Leave removes the actor from a group. Owners cannot leave. When the last
// member leaves, the group and its content are deleted in the same
// transaction as the membership removal.
func (s *Service) Leave(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID) (LeaveResult, error) {
	var out LeaveResult
	if !actor.CanWrite {
		return out, apperr.ErrInactiveAccount
	}

	var res cascade.Result
	err := s.runner.Run(ctx, func(ctx context.Context) error {
		out = LeaveResult{}
		m, err := s.memberships.Get(ctx, groupID, actor.ID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.ErrNotMember
		}
		if err != nil {
			return err
		}
		if m.Role == models.MemberRoleOwner {
			return apperr.ErrOwnerCannotLeave
		}
		if _, err := s.memberships.Remove(ctx, groupID, actor.ID); err != nil {
			return err
		}
		gid := groupID
		if _, err := s.reminders.DeleteByUser(ctx, actor.ID, &gid); err != nil {
			return err
		}
		remaining, err := s.memberships.CountByGroup(ctx, groupID, "")
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		res, err = s.cascade.DeleteGroup(ctx, groupID)
		if err != nil {
			return apperr.Deletion(err)
		}
		out.GroupDeleted = true
		return nil
	})
	if err != nil {
		if !apperr.IsExpected(err) {
			s.log.Error("leave group failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
		}
		return LeaveResult{}, err
	}

	s.audit.MembershipEvent(ctx, audit.EventMemberLeft, actor.ID, groupID, actor.ID, nil)
	s.metrics.Membership("left")
	if out.GroupDeleted {
		s.cascade.RemoveMedia(res.MediaPaths)
		s.rooms.CloseGroup(groupID.Hex())
		s.audit.GroupEvent(ctx, audit.EventGroupDeleted, actor.ID, groupID, "")
		s.metrics.Group("emptied")
		s.log.Info("empty group removed", zap.String("group_id", groupID.Hex()))
	} else {
		s.rooms.DropUser(groupID.Hex(), actor.ID.Hex())
	}
	return out, nil
}

// ChangeRole sets memberID's role in a group. Admins and the group's owner
// may change roles. Demoting the only owner is rejected so a group never
// ends up without one.
func (s *Service) ChangeRole(ctx context.Context, actor authz.Actor, groupID, memberID primitive.ObjectID, newRole string) error {
	if !slices.Contains(models.MemberRoles, newRole) {
		return apperr.Validation("role", "Role must be one of: owner, moderator, member.")
	}
	actorRole, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return err
	}
	if !grouppolicy.CanChangeRoles(actor, actorRole) {
		return apperr.Forbidden("only an admin or the group owner may change roles")
	}

	var oldRole string
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		m, err := s.memberships.Get(ctx, groupID, memberID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("member")
		}
		if err != nil {
			return err
		}
		oldRole = m.Role
		if oldRole == newRole {
			return nil
		}
		if oldRole == models.MemberRoleOwner {
			owners, err := s.memberships.CountByGroup(ctx, groupID, models.MemberRoleOwner)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperr.Conflict("a group must keep at least one owner")
			}
		}
		return s.memberships.SetRole(ctx, groupID, memberID, newRole)
	})
	if err != nil {
		return err
	}
	if oldRole == newRole {
		return nil
	}

	s.audit.MembershipEvent(ctx, audit.EventMemberRoleChanged, actor.ID, groupID, memberID,
		map[string]string{"from": oldRole, "to": newRole})
	s.metrics.Membership("role_changed")
	return nil
}
