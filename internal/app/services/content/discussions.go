package content

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DiscussionInput starts a thread.
type DiscussionInput struct {
	Title   string `form:"title" validate:"required,max=200" label:"Title"`
	Content string `form:"content" validate:"required,max=10000" label:"Content"`
}

type replyInput struct {
	Content string `form:"content" validate:"required,max=10000" label:"Reply"`
}

// DiscussionView is a discussion with its author and reply count.
type DiscussionView struct {
	models.Discussion
	AuthorName string
	ReplyCount int64
}

// ReplyView is a reply with its author.
type ReplyView struct {
	models.Reply
	AuthorName string
}

// PostDiscussion starts a discussion in the group.
func (s *Service) PostDiscussion(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID, in DiscussionInput) (models.Discussion, error) {
	if _, err := s.participateRole(ctx, actor, groupID); err != nil {
		return models.Discussion{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = normalize.Text(in.Content)
	if res := inputval.Validate(in); res.HasErrors() {
		return models.Discussion{}, res
	}
	return s.discussions.Create(ctx, models.Discussion{
		GroupID:  groupID,
		UserID:   actor.ID,
		Title:    in.Title,
		Content:  in.Content,
		PostedAt: s.now().UTC(),
	})
}

// PostReply answers a discussion. The discussion must belong to groupID.
func (s *Service) PostReply(ctx context.Context, actor authz.Actor, groupID, discussionID primitive.ObjectID, content string) (models.Reply, error) {
	if _, err := s.participateRole(ctx, actor, groupID); err != nil {
		return models.Reply{}, err
	}
	if _, err := s.discussionIn(ctx, groupID, discussionID); err != nil {
		return models.Reply{}, err
	}
	in := replyInput{Content: normalize.Text(content)}
	if res := inputval.Validate(in); res.HasErrors() {
		return models.Reply{}, res
	}
	return s.replies.Create(ctx, models.Reply{
		DiscussionID: discussionID,
		GroupID:      groupID,
		UserID:       actor.ID,
		Content:      in.Content,
		RepliedAt:    s.now().UTC(),
	})
}

// discussionIn loads a discussion and checks it belongs to groupID.
func (s *Service) discussionIn(ctx context.Context, groupID, discussionID primitive.ObjectID) (models.Discussion, error) {
	d, err := s.discussions.GetByID(ctx, discussionID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return d, apperr.ErrInvalidDiscussion
	}
	if err != nil {
		return d, err
	}
	if d.GroupID != groupID {
		return d, apperr.ErrInvalidDiscussion
	}
	return d, nil
}

// ListDiscussions returns the group's discussions, pinned first.
func (s *Service) ListDiscussions(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID) ([]DiscussionView, error) {
	if _, err := s.viewRole(ctx, actor, groupID); err != nil {
		return nil, err
	}
	ds, err := s.discussions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ds))
	authors := make([]primitive.ObjectID, 0, len(ds))
	for _, d := range ds {
		ids = append(ids, d.ID)
		authors = append(authors, d.UserID)
	}
	counts, err := s.replies.CountsByDiscussion(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := s.names(ctx, authors)

	out := make([]DiscussionView, 0, len(ds))
	for _, d := range ds {
		out = append(out, DiscussionView{
			Discussion: d,
			AuthorName: names[d.UserID].name(),
			ReplyCount: counts[d.ID],
		})
	}
	return out, nil
}

// Thread returns a discussion and its replies, oldest reply first.
func (s *Service) Thread(ctx context.Context, actor authz.Actor, groupID, discussionID primitive.ObjectID) (DiscussionView, []ReplyView, error) {
	if _, err := s.viewRole(ctx, actor, groupID); err != nil {
		return DiscussionView{}, nil, err
	}
	d, err := s.discussionIn(ctx, groupID, discussionID)
	if err != nil {
		return DiscussionView{}, nil, err
	}
	rs, err := s.replies.ListByDiscussion(ctx, discussionID)
	if err != nil {
		return DiscussionView{}, nil, err
	}

	ids := []primitive.ObjectID{d.UserID}
	for _, r := range rs {
		ids = append(ids, r.UserID)
	}
	names := s.names(ctx, ids)

	views := make([]ReplyView, 0, len(rs))
	for _, r := range rs {
		views = append(views, ReplyView{Reply: r, AuthorName: names[r.UserID].name()})
	}
	return DiscussionView{
		Discussion: d,
		AuthorName: names[d.UserID].name(),
		ReplyCount: int64(len(rs)),
	}, views, nil
}

// SetPinned pins or unpins a discussion. Admins, owners and moderators may
// pin.
func (s *Service) SetPinned(ctx context.Context, actor authz.Actor, groupID, discussionID primitive.ObjectID, pinned bool) error {
	role, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return err
	}
	if !grouppolicy.CanManage(actor, role) {
		return apperr.Forbidden("only moderators may pin discussions")
	}
	if _, err := s.discussionIn(ctx, groupID, discussionID); err != nil {
		return err
	}
	if err := s.discussions.SetPinned(ctx, discussionID, pinned); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.ErrInvalidDiscussion
		}
		return err
	}
	return nil
}

// DeleteDiscussion removes a discussion and its replies in one
// transaction. The author, group moderators and admins may delete.
func (s *Service) DeleteDiscussion(ctx context.Context, actor authz.Actor, groupID, discussionID primitive.ObjectID) error {
	d, err := s.discussionIn(ctx, groupID, discussionID)
	if err != nil {
		return err
	}
	role, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return err
	}
	if !grouppolicy.CanDeleteContent(actor, role, d.UserID) {
		return apperr.Forbidden("you may not delete this discussion")
	}
	err = s.runner.Run(ctx, func(ctx context.Context) error {
		if _, err := s.replies.DeleteByDiscussion(ctx, discussionID); err != nil {
			return err
		}
		n, err := s.discussions.Delete(ctx, discussionID)
		if err != nil {
			return err
		}
		if n == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.ErrInvalidDiscussion
	}
	if err != nil {
		s.log.Error("delete discussion failed", zap.String("discussion_id", discussionID.Hex()), zap.Error(err))
		return apperr.Deletion(err)
	}
	return nil
}

// DeleteReply removes one reply. The author, group moderators and admins
// may delete.
func (s *Service) DeleteReply(ctx context.Context, actor authz.Actor, groupID, replyID primitive.ObjectID) error {
	r, err := s.replies.GetByID(ctx, replyID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && r.GroupID != groupID) {
		return apperr.NotFound("reply")
	}
	if err != nil {
		return err
	}
	role, err := grouppolicy.MemberRole(ctx, s.db, groupID, actor.ID)
	if err != nil {
		return err
	}
	if !grouppolicy.CanDeleteContent(actor, role, r.UserID) {
		return apperr.Forbidden("you may not delete this reply")
	}
	if _, err := s.replies.Delete(ctx, replyID); err != nil {
		return err
	}
	return nil
}
