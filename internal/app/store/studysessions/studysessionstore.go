// internal/app/store/studysessions/studysessionstore.go
package studysessionstore

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("study_sessions")}
}

func (s *Store) Create(ctx context.Context, ss models.StudySession) (models.StudySession, error) {
	ss.ID = primitive.NewObjectID()
	ss.StartsAt = ss.StartsAt.UTC()
	if ss.CreatedAt.IsZero() {
		ss.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, ss); err != nil {
		return models.StudySession{}, err
	}
	return ss, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.StudySession, error) {
	var ss models.StudySession
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ss)
	return ss, err
}

// ListUpcoming returns sessions of groupIDs starting after now, soonest first.
func (s *Store) ListUpcoming(ctx context.Context, groupIDs []primitive.ObjectID, now time.Time, limit int64) ([]models.StudySession, error) {
	return s.list(ctx, groupIDs, bson.M{"$gt": now.UTC()}, 1, limit)
}

// ListPast returns sessions of groupIDs that started at or before now,
// most recent first.
func (s *Store) ListPast(ctx context.Context, groupIDs []primitive.ObjectID, now time.Time, limit int64) ([]models.StudySession, error) {
	return s.list(ctx, groupIDs, bson.M{"$lte": now.UTC()}, -1, limit)
}

func (s *Store) list(ctx context.Context, groupIDs []primitive.ObjectID, window bson.M, order int, limit int64) ([]models.StudySession, error) {
	out := []models.StudySession{}
	if len(groupIDs) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "starts_at", Value: order}, {Key: "_id", Value: order}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"group_id": bson.M{"$in": groupIDs}, "starts_at": window}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a session by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every session of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the total number of sessions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
