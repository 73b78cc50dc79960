// internal/app/store/reports/reportstore.go
package reportstore

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
	return &Store{c: db.Collection("reports")}
}

func (s *Store) Create(ctx context.Context, r models.Report) (models.Report, error) {
	r.ID = primitive.NewObjectID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Report{}, err
	}
	return r, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Report, error) {
	var r models.Report
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	return r, err
}

// List returns reports newest first, without their data payload.
func (s *Store) List(ctx context.Context, limit int64) ([]models.Report, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"data": 0})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Report{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a report by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
