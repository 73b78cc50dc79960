// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxSince caps one polling response.
const MaxSince = 200

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_messages")}
}

// Create inserts m. The ID is assigned here so that message order follows
// insertion order.
func (s *Store) Create(ctx context.Context, m models.GroupMessage) (models.GroupMessage, error) {
	m.ID = primitive.NewObjectID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.GroupMessage{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GroupMessage, error) {
	var m models.GroupMessage
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	return m, err
}

// ListSince returns up to MaxSince messages in groupID with an ID greater
// than after, ascending. A zero after returns from the beginning.
func (s *Store) ListSince(ctx context.Context, groupID, after primitive.ObjectID) ([]models.GroupMessage, error) {
	q := bson.M{"group_id": groupID}
	if !after.IsZero() {
		q["_id"] = bson.M{"$gt": after}
	}
	return s.find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(MaxSince))
}

// ListRecent returns the last n messages of a group, oldest first.
func (s *Store) ListRecent(ctx context.Context, groupID primitive.ObjectID, n int64) ([]models.GroupMessage, error) {
	out, err := s.find(ctx, bson.M{"group_id": groupID}, options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(n))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListMedia returns messages with attachments, newest first. category ""
// matches every accepted type.
func (s *Store) ListMedia(ctx context.Context, groupID primitive.ObjectID, category string) ([]models.GroupMessage, error) {
	q := bson.M{"group_id": groupID, "media_path": bson.M{"$exists": true, "$ne": ""}}
	if category != "" {
		exts := models.MediaExtensions(category)
		if len(exts) == 0 {
			return nil, nil
		}
		for i, e := range exts {
			exts[i] = regexp.QuoteMeta(e)
		}
		q["media_path"] = bson.M{"$regex": `\.(` + strings.Join(exts, "|") + `)$`, "$options": "i"}
	}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
}

// Update is a partial edit of a message.
type Update struct {
	Content   *string
	MediaPath *string // "" removes the attachment
}

// Apply writes upd and stamps edited_at.
func (s *Store) Apply(ctx context.Context, id primitive.ObjectID, upd Update, at time.Time) error {
	set := bson.M{"edited_at": at.UTC()}
	unset := bson.M{}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.MediaPath != nil {
		if *upd.MediaPath == "" {
			unset["media_path"] = ""
		} else {
			set["media_path"] = *upd.MediaPath
		}
	}
	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	res, err := s.c.UpdateByID(ctx, id, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a message by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every message of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MediaPathsByGroup returns the attachment paths of a group's messages.
func (s *Store) MediaPathsByGroup(ctx context.Context, groupID primitive.ObjectID) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "media_path", bson.M{"group_id": groupID, "media_path": bson.M{"$ne": ""}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if p, ok := v.(string); ok && p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// CountBetween counts all messages in [start, end).
func (s *Store) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": start, "$lt": end}})
}

// Count returns the total number of messages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.GroupMessage, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.GroupMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
