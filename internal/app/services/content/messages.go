package content

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	messagestore "github.com/dalemusser/studyhub/internal/app/store/messages"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/normalize"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Upload is an attachment supplied with a message.
type Upload struct {
	Filename string
	Body     io.Reader
}

func (u *Upload) ext() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.Filename), "."))
}

// MessageView is a message as shown to clients.
type MessageView struct {
	ID             string     `json:"id"`
	GroupID        string     `json:"group_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name"`
	SenderRole     string     `json:"sender_role"`
	Content        string     `json:"content"`
	IsAnnouncement bool       `json:"is_announcement"`
	MediaPath      string     `json:"media_path,omitempty"`
	MediaCategory  string     `json:"media_category,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
}

func (s *Service) view(m models.GroupMessage, a author) MessageView {
	v := MessageView{
		ID:             m.ID.Hex(),
		GroupID:        m.GroupID.Hex(),
		SenderID:       m.SenderID.Hex(),
		SenderName:     a.name(),
		SenderRole:     a.Role,
		Content:        m.Content,
		IsAnnouncement: m.IsAnnouncement,
		MediaPath:      m.MediaPath,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
	}
	if m.MediaPath != "" {
		v.MediaCategory = filestore.Category(m.MediaPath)
	}
	return v
}

func (s *Service) views(ctx context.Context, msgs []models.GroupMessage) []MessageView {
	ids := make([]primitive.ObjectID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	names := s.names(ctx, ids)
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.view(m, names[m.SenderID]))
	}
	return out
}

// MessageInput is a new chat message.
type MessageInput struct {
	Content        string
	IsAnnouncement bool
	Media          *Upload
}

// PostMessage stores a message in the group. Announcements require an
// admin, owner or moderator. An attachment of a disallowed type or size is
// a validation error; a storage failure while saving it is logged and the
// message is posted without it.
func (s *Service) PostMessage(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID, in MessageInput) (MessageView, error) {
	role, err := s.participateRole(ctx, actor, groupID)
	if err != nil {
		return MessageView{}, err
	}
	if in.IsAnnouncement && !grouppolicy.CanManage(actor, role) {
		return MessageView{}, apperr.Forbidden("only moderators may post announcements")
	}

	content := normalize.Text(in.Content)
	ve := &apperr.ValidationError{}
	if len([]rune(content)) > MaxMessageLen {
		ve.Add("content", "Message must be at most 5000 characters.")
	}
	if in.Media == nil && content == "" {
		ve.Add("content", "Message cannot be empty.")
	}
	if ve.HasErrors() {
		return MessageView{}, ve
	}

	mediaPath, err := s.saveMedia(ctx, in.Media)
	if err != nil {
		return MessageView{}, err
	}
	if content == "" && mediaPath == "" {
		return MessageView{}, apperr.Validation("media", "The attachment could not be saved.")
	}

	m, err := s.messages.Create(ctx, models.GroupMessage{
		GroupID:        groupID,
		SenderID:       actor.ID,
		Content:        content,
		IsAnnouncement: in.IsAnnouncement,
		MediaPath:      mediaPath,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		s.discard(mediaPath)
		return MessageView{}, err
	}

	v := s.view(m, author{Name: actor.Name, Role: actor.Role})
	s.pub.Publish(realtime.Event{Type: realtime.EventMessageCreated, GroupID: groupID.Hex(), Data: v})
	s.metrics.Message("posted")
	return v, nil
}

// saveMedia stores an upload. It returns a user-facing validation error
// for rejected files and "" (after logging) when storage itself fails.
func (s *Service) saveMedia(ctx context.Context, up *Upload) (string, error) {
	if up == nil {
		return "", nil
	}
	if s.files == nil {
		return "", apperr.Validation("media", "Attachments are not enabled.")
	}
	if _, ok := models.MediaCategory(up.ext()); !ok {
		return "", apperr.Validation("media", "This file type is not allowed.")
	}
	p, err := s.files.Save(ctx, up.ext(), up.Body)
	switch {
	case errors.Is(err, filestore.ErrTooLarge):
		return "", apperr.Validation("media", "The file is too large.")
	case errors.Is(err, filestore.ErrUnsupportedType):
		return "", apperr.Validation("media", "This file type is not allowed.")
	case err != nil:
		s.log.Warn("attachment upload failed; posting without it",
			zap.String("filename", up.Filename), zap.Error(err))
		return "", nil
	}
	return p, nil
}

func (s *Service) discard(p string) {
	if p == "" || s.files == nil {
		return
	}
	if err := s.files.Remove(p); err != nil {
		s.log.Warn("remove attachment", zap.String("path", p), zap.Error(err))
	}
}

// MessageEdit changes a message. Nil Content leaves the text alone;
// RemoveMedia drops the attachment; Media replaces it.
type MessageEdit struct {
	Content     *string
	Media       *Upload
	RemoveMedia bool
}

// EditMessage applies edit to a message. Only the sender may edit; the
// sender never changes and edited_at is set.
func (s *Service) EditMessage(ctx context.Context, actor authz.Actor, messageID primitive.ObjectID, edit MessageEdit) (MessageView, error) {
	m, err := s.message(ctx, messageID)
	if err != nil {
		return MessageView{}, err
	}
	if !actor.CanWrite {
		return MessageView{}, apperr.ErrInactiveAccount
	}
	if !grouppolicy.CanEditMessage(actor, m.SenderID) {
		return MessageView{}, apperr.ErrNotOwner
	}

	var upd messagestore.Update
	if edit.Content != nil {
		c := normalize.Text(*edit.Content)
		if len([]rune(c)) > MaxMessageLen {
			return MessageView{}, apperr.Validation("content", "Message must be at most 5000 characters.")
		}
		upd.Content = &c
	}

	oldMedia := m.MediaPath
	newMedia := oldMedia
	switch {
	case edit.Media != nil:
		p, err := s.saveMedia(ctx, edit.Media)
		if err != nil {
			return MessageView{}, err
		}
		if p != "" {
			newMedia = p
			upd.MediaPath = &newMedia
		}
	case edit.RemoveMedia && oldMedia != "":
		newMedia = ""
		upd.MediaPath = &newMedia
	}

	finalContent := m.Content
	if upd.Content != nil {
		finalContent = *upd.Content
	}
	if finalContent == "" && newMedia == "" {
		if newMedia != oldMedia {
			s.discard(newMedia)
		}
		return MessageView{}, apperr.Validation("content", "Message cannot be empty.")
	}

	at := s.now().UTC()
	if err := s.messages.Apply(ctx, messageID, upd, at); err != nil {
		if newMedia != oldMedia {
			s.discard(newMedia)
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return MessageView{}, apperr.NotFound("message")
		}
		return MessageView{}, err
	}
	if newMedia != oldMedia {
		s.discard(oldMedia)
	}

	m.Content = finalContent
	m.MediaPath = newMedia
	m.EditedAt = &at
	v := s.view(m, author{Name: actor.Name, Role: actor.Role})
	s.pub.Publish(realtime.Event{Type: realtime.EventMessageUpdated, GroupID: m.GroupID.Hex(), Data: v})
	s.metrics.Message("edited")
	return v, nil
}

// DeleteMessage removes a message. The sender or an admin may delete. The
// attachment file is removed best-effort.
func (s *Service) DeleteMessage(ctx context.Context, actor authz.Actor, messageID primitive.ObjectID) error {
	m, err := s.message(ctx, messageID)
	if err != nil {
		return err
	}
	if !actor.CanWrite {
		return apperr.ErrInactiveAccount
	}
	if !grouppolicy.CanDeleteMessage(actor, m.SenderID) {
		return apperr.ErrNotOwner
	}
	n, err := s.messages.Delete(ctx, messageID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("message")
	}
	s.discard(m.MediaPath)

	s.pub.Publish(realtime.Event{
		Type:    realtime.EventMessageDeleted,
		GroupID: m.GroupID.Hex(),
		Data:    map[string]string{"id": m.ID.Hex()},
	})
	s.metrics.Message("deleted")
	return nil
}

// GetMessage returns one message the actor may read.
func (s *Service) GetMessage(ctx context.Context, actor authz.Actor, messageID primitive.ObjectID) (MessageView, error) {
	m, err := s.message(ctx, messageID)
	if err != nil {
		return MessageView{}, err
	}
	if _, err := s.viewRole(ctx, actor, m.GroupID); err != nil {
		return MessageView{}, err
	}
	return s.views(ctx, []models.GroupMessage{m})[0], nil
}

func (s *Service) message(ctx context.Context, id primitive.ObjectID) (models.GroupMessage, error) {
	m, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return m, apperr.NotFound("message")
	}
	return m, err
}

// ListSince returns messages with an id greater than after, ascending.
// A zero after starts from the group's first message. Each call returns at
// most messagestore.MaxSince messages; callers continue from the last id.
func (s *Service) ListSince(ctx context.Context, actor authz.Actor, groupID, after primitive.ObjectID) ([]MessageView, error) {
	if _, err := s.viewRole(ctx, actor, groupID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListSince(ctx, groupID, after)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, msgs), nil
}

// Recent returns the last n messages, oldest first.
func (s *Service) Recent(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID, n int64) ([]MessageView, error) {
	if _, err := s.viewRole(ctx, actor, groupID); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = RecentLimit
	}
	msgs, err := s.messages.ListRecent(ctx, groupID, n)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, msgs), nil
}

// ListMedia returns the group's messages that carry an attachment,
// optionally limited to one media category.
func (s *Service) ListMedia(ctx context.Context, actor authz.Actor, groupID primitive.ObjectID, category string) ([]MessageView, error) {
	if _, err := s.viewRole(ctx, actor, groupID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListMedia(ctx, groupID, category)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, msgs), nil
}

// OpenMedia opens a message's attachment for download and records the
// download. The caller closes the file.
func (s *Service) OpenMedia(ctx context.Context, actor authz.Actor, messageID primitive.ObjectID) (afero.File, models.GroupMessage, error) {
	m, err := s.message(ctx, messageID)
	if err != nil {
		return nil, m, err
	}
	if _, err := s.viewRole(ctx, actor, m.GroupID); err != nil {
		return nil, m, err
	}
	if m.MediaPath == "" || s.files == nil {
		return nil, m, apperr.NotFound("attachment")
	}
	f, err := s.files.Open(m.MediaPath)
	if err != nil {
		s.log.Warn("open attachment", zap.String("path", m.MediaPath), zap.Error(err))
		return nil, m, apperr.NotFound("attachment")
	}
	if err := s.downloads.Record(ctx, models.Download{
		MessageID: m.ID,
		GroupID:   m.GroupID,
		UserID:    actor.ID,
		Category:  filestore.Category(m.MediaPath),
		CreatedAt: s.now().UTC(),
	}); err != nil {
		s.log.Warn("record download", zap.String("message_id", m.ID.Hex()), zap.Error(err))
	}
	return f, m, nil
}
