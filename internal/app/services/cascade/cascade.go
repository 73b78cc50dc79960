// Package cascade removes a study group together with everything that
// hangs off it.
package cascade

import (
	"context"
	"fmt"

	discussionstore "github.com/dalemusser/studyhub/internal/app/store/discussions"
	downloadstore "github.com/dalemusser/studyhub/internal/app/store/downloads"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	messagestore "github.com/dalemusser/studyhub/internal/app/store/messages"
	reminderstore "github.com/dalemusser/studyhub/internal/app/store/reminders"
	replystore "github.com/dalemusser/studyhub/internal/app/store/replies"
	studysessionstore "github.com/dalemusser/studyhub/internal/app/store/studysessions"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result counts what a cascade removed. MediaPaths lists attachment files
// that belonged to the group's messages; they are removed after commit.
type Result struct {
	Memberships int64
	Messages    int64
	Discussions int64
	Replies     int64
	Sessions    int64
	Reminders   int64
	Downloads   int64
	MediaPaths  []string
}

// Cascade deletes a group and its dependents.
type Cascade struct {
	groups      *groupstore.Store
	memberships *membershipstore.Store
	messages    *messagestore.Store
	discussions *discussionstore.Store
	replies     *replystore.Store
	sessions    *studysessionstore.Store
	reminders   *reminderstore.Store
	downloads   *downloadstore.Store
	files       *filestore.Store
	log         *zap.Logger
}

// New builds a Cascade over db. files may be nil when attachments are
// disabled.
func New(db *mongo.Database, files *filestore.Store, log *zap.Logger) *Cascade {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cascade{
		groups:      groupstore.New(db),
		memberships: membershipstore.New(db),
		messages:    messagestore.New(db),
		discussions: discussionstore.New(db),
		replies:     replystore.New(db),
		sessions:    studysessionstore.New(db),
		reminders:   reminderstore.New(db),
		downloads:   downloadstore.New(db),
		files:       files,
		log:         log,
	}
}

// DeleteGroup removes every row keyed by groupID and then the group itself.
// It must be called with the context of an open transaction; any failure
// is returned unwrapped so the caller's transaction aborts.
// A group that no longer exists yields mongo.ErrNoDocuments.
func (c *Cascade) DeleteGroup(ctx context.Context, groupID primitive.ObjectID) (Result, error) {
	var res Result
	var err error

	if res.MediaPaths, err = c.messages.MediaPathsByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("list media: %w", err)
	}
	if res.Reminders, err = c.reminders.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete reminders: %w", err)
	}
	if res.Sessions, err = c.sessions.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete sessions: %w", err)
	}
	if res.Replies, err = c.replies.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete replies: %w", err)
	}
	if res.Discussions, err = c.discussions.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete discussions: %w", err)
	}
	if res.Downloads, err = c.downloads.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete downloads: %w", err)
	}
	if res.Messages, err = c.messages.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete messages: %w", err)
	}
	if res.Memberships, err = c.memberships.DeleteByGroup(ctx, groupID); err != nil {
		return res, fmt.Errorf("delete memberships: %w", err)
	}
	n, err := c.groups.Delete(ctx, groupID)
	if err != nil {
		return res, fmt.Errorf("delete group: %w", err)
	}
	if n == 0 {
		return res, mongo.ErrNoDocuments
	}
	return res, nil
}

// RemoveMedia deletes attachment files after the cascade committed.
// Failures are logged and otherwise ignored.
func (c *Cascade) RemoveMedia(paths []string) {
	if c.files == nil {
		return
	}
	for _, p := range paths {
		if err := c.files.Remove(p); err != nil {
			c.log.Warn("remove media after cascade", zap.String("path", p), zap.Error(err))
		}
	}
}
