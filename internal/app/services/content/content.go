// Package content posts, edits and lists the messages and discussions of a
// study group.
package content

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	discussionstore "github.com/dalemusser/studyhub/internal/app/store/discussions"
	downloadstore "github.com/dalemusser/studyhub/internal/app/store/downloads"
	messagestore "github.com/dalemusser/studyhub/internal/app/store/messages"
	replystore "github.com/dalemusser/studyhub/internal/app/store/replies"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Content limits.
const (
	MaxMessageLen = 5000
	MaxTitleLen   = 200
	MaxBodyLen    = 10000
	RecentLimit   = 50
)

// Deps wires the content store to its collaborators. Files, Metrics and
// Publisher are optional; without Files attachments are rejected.
type Deps struct {
	DB        *mongo.Database
	Runner    *txn.Runner
	Files     *filestore.Store
	Metrics   *metrics.Metrics
	Publisher realtime.Publisher
	Log       *zap.Logger
}

// Service owns group messages, discussions and replies.
type Service struct {
	db          *mongo.Database
	runner      *txn.Runner
	files       *filestore.Store
	messages    *messagestore.Store
	discussions *discussionstore.Store
	replies     *replystore.Store
	downloads   *downloadstore.Store
	users       *userstore.Store
	metrics     *metrics.Metrics
	pub         realtime.Publisher
	log         *zap.Logger
	now         func() time.Time
}

// New builds the content service.
func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = realtime.Nop{}
	}
	return &Service{
		db:          d.DB,
		runner:      d.Runner,
		files:       d.Files,
		messages:    messagestore.New(d.DB),
		discussions: discussionstore.New(d.DB),
		replies:     replystore.New(d.DB),
		downloads:   downloadstore.New(d.DB),
		users:       userstore.New(d.DB),
		metrics:     d.Metrics,
		pub:         d.Publisher,
		log:         d.Log,
		now:         time.Now,
	}
}

// viewRole returns the actor's membership role and fails when the actor may
// not even read the group.
func (s *Service) viewRole(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID) (string, error) {
	role, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return "", err
	}
	if !grouppolicy.CanView(actor, role) {
		return "", apperr.ErrNotMember
	}
	return role, nil
}

// participateRole is viewRole plus the write gate.
func (s *Service) participateRole(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID) (string, error) {
	if !actor.CanWrite {
		return "", apperr.ErrInactiveAccount
	}
	role, err := s.viewRole(ctx, actor, groupID)
	if err != nil {
		return "", err
	}
	if !grouppolicy.CanParticipate(actor, role) {
		return "", apperr.ErrNotMember
	}
	return role, nil
}

// names resolves display names and account roles for ids.
func (s *Service) names(ctx context.Context, ids []primitive.ObjectID) map[primitive.ObjectID]author {
	out := make(map[primitive.ObjectID]author, len(ids))
	users, err := s.users.NamesByID(ctx, ids)
	if err != nil {
		s.log.Warn("resolve author names", zap.Error(err))
		return out
	}
	for id, u := range users {
		out[id] = author{Name: u.FullName, Role: u.Role}
	}
	return out
}

type author struct {
	Name string
	Role string
}

func (a author) name() string {
	if a.Name == "" {
		return "Deleted user"
	}
	return a.Name
}
