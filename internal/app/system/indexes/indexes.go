// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll is called at startup. Each collection set is idempotent.
// Errors are aggregated so every problem is visible and startup can fail fast.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", usersIndexes()},
		{"groups", groupsIndexes()},
		{"group_memberships", membershipIndexes()},
		{"group_messages", messageIndexes()},
		{"discussions", discussionIndexes()},
		{"discussion_replies", replyIndexes()},
		{"study_sessions", sessionIndexes()},
		{"session_reminders", reminderIndexes()},
		{"notifications", notificationIndexes()},
		{"reports", reportIndexes()},
		{"downloads", downloadIndexes()},
		{"audit_events", auditIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models, log); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates each desired index unless one with the same key
// pattern and uniqueness already exists. An index whose name or uniqueness
// differs is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := ""
		unique := false
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = boolVal(m.Options.Unique)
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
		}

		if ex, ok := existing[sig]; ok {
			if boolVal(ex.Unique) == unique && (name == "" || ex.Name == name) {
				log.Debug("reusing existing index", fields...)
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
			log.Info("dropped index for recreate", append(fields, zap.String("old_name", ex.Name))...)
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) && unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		log.Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_users_emailci", bson.D{{Key: "email_ci", Value: 1}}),
		uniq("uniq_users_national_id", bson.D{{Key: "national_id", Value: 1}}),
		// Students console: filter by role + status, sort by folded name.
		idx("idx_users_role_status_nameci_id", bson.D{
			{Key: "role", Value: 1},
			{Key: "status", Value: 1},
			{Key: "full_name_ci", Value: 1},
			{Key: "_id", Value: 1},
		}),
		idx("idx_users_created", bson.D{{Key: "created_at", Value: 1}}),
	}
}

func groupsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_groups_nameci", bson.D{{Key: "name_ci", Value: 1}}),
		idx("idx_groups_subject_nameci", bson.D{{Key: "subject", Value: 1}, {Key: "name_ci", Value: 1}}),
		idx("idx_groups_created_by", bson.D{{Key: "created_by", Value: 1}}),
	}
}

func membershipIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Exactly one membership per (group, user); change role by updating the doc.
		uniq("uniq_gm_group_user", bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}}),
		idx("idx_gm_user_group", bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}}),
		idx("idx_gm_group_role", bson.D{{Key: "group_id", Value: 1}, {Key: "role", Value: 1}}),
		idx("idx_gm_joined", bson.D{{Key: "joined_at", Value: 1}}),
	}
}

func messageIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Polling reads _id > last within a group.
		idx("idx_msgs_group_id", bson.D{{Key: "group_id", Value: 1}, {Key: "_id", Value: 1}}),
		idx("idx_msgs_group_media", bson.D{{Key: "group_id", Value: 1}, {Key: "media_path", Value: 1}}),
		idx("idx_msgs_created", bson.D{{Key: "created_at", Value: 1}}),
	}
}

func discussionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_disc_group_pinned_posted", bson.D{
			{Key: "group_id", Value: 1},
			{Key: "is_pinned", Value: -1},
			{Key: "posted_at", Value: -1},
		}),
		idx("idx_disc_posted", bson.D{{Key: "posted_at", Value: 1}}),
	}
}

func replyIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_replies_discussion_replied", bson.D{{Key: "discussion_id", Value: 1}, {Key: "replied_at", Value: 1}}),
		idx("idx_replies_group", bson.D{{Key: "group_id", Value: 1}}),
		idx("idx_replies_replied", bson.D{{Key: "replied_at", Value: 1}}),
	}
}

func sessionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_sessions_group_starts", bson.D{{Key: "group_id", Value: 1}, {Key: "starts_at", Value: 1}}),
	}
}

func reminderIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		uniq("uniq_reminders_session_user", bson.D{{Key: "session_id", Value: 1}, {Key: "user_id", Value: 1}}),
		// Dispatch scan: enabled, unsent, starting soon.
		idx("idx_reminders_due", bson.D{
			{Key: "enabled", Value: 1},
			{Key: "sent", Value: 1},
			{Key: "starts_at", Value: 1},
		}),
		idx("idx_reminders_group", bson.D{{Key: "group_id", Value: 1}}),
	}
}

func notificationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Idempotency key for dispatched reminders. Partial so notifications
		// without a source key do not collide on "".
		{
			Keys: bson.D{{Key: "source_key", Value: 1}},
			Options: options.Index().
				SetName("uniq_notifications_source_key").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"source_key": bson.M{"$type": "string"}}),
		},
		idx("idx_notifications_user_created", bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}),
		idx("idx_notifications_user_read", bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}),
	}
}

func reportIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_reports_created", bson.D{{Key: "created_at", Value: -1}}),
	}
}

func downloadIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_downloads_created_category", bson.D{{Key: "created_at", Value: 1}, {Key: "category", Value: 1}}),
		idx("idx_downloads_group", bson.D{{Key: "group_id", Value: 1}}),
	}
}

func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		idx("idx_audit_timestamp", bson.D{{Key: "timestamp", Value: -1}}),
		idx("idx_audit_user_timestamp", bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}),
		idx("idx_audit_group_timestamp", bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}}),
		idx("idx_audit_type_timestamp", bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}),
	}
}
