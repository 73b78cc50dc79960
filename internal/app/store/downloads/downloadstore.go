// internal/app/store/downloads/downloadstore.go
package downloadstore

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("downloads")}
}

// Record stores one attachment download.
func (s *Store) Record(ctx context.Context, d models.Download) error {
	d.ID = primitive.NewObjectID()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, d)
	return err
}

// CountByCategoryBetween counts downloads in [start, end) per media category.
func (s *Store) CountByCategoryBetween(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": start, "$lt": end}}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Category string `bson:"_id"`
			N        int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Category] = row.N
	}
	return out, cur.Err()
}

// DeleteByGroup removes download records of a group's attachments.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
