// internal/app/store/discussions/discussionstore.go
package discussionstore

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
	return &Store{c: db.Collection("discussions")}
}

func (s *Store) Create(ctx context.Context, d models.Discussion) (models.Discussion, error) {
	d.ID = primitive.NewObjectID()
	if d.PostedAt.IsZero() {
		d.PostedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return models.Discussion{}, err
	}
	return d, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Discussion, error) {
	var d models.Discussion
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	return d, err
}

// ListByGroup returns a group's discussions, pinned first and then newest.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Discussion, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, options.Find().SetSort(bson.D{
		{Key: "is_pinned", Value: -1},
		{Key: "posted_at", Value: -1},
		{Key: "_id", Value: -1},
	}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Discussion{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPinned pins or unpins a discussion.
func (s *Store) SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_pinned": pinned}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a discussion by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every discussion of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountBetween counts discussions started in [start, end).
func (s *Store) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"posted_at": bson.M{"$gte": start, "$lt": end}})
}

// Count returns the total number of discussions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
