// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateSource is returned when a notification with the same
// source key already exists.
var ErrDuplicateSource = errors.New("notification already delivered for this source")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Insert stores n. A repeated SourceKey yields ErrDuplicateSource.
func (s *Store) Insert(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Notification{}, ErrDuplicateSource
		}
		return models.Notification{}, err
	}
	return n, nil
}

// ListByUser returns a user's notifications, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountUnread returns the number of unread notifications for a user.
func (s *Store) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

// CountBySource returns how many notifications carry sourceKey (0 or 1).
func (s *Store) CountBySource(ctx context.Context, sourceKey string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"source_key": sourceKey})
}

// MarkRead marks one of the user's notifications read. It returns
// mongo.ErrNoDocuments when the notification is not the user's.
func (s *Store) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkAllRead marks every notification of the user read.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// PruneRead deletes read notifications created before olderThan.
func (s *Store) PruneRead(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"read": true, "created_at": bson.M{"$lt": olderThan.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes every notification of a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the total number of notifications.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
