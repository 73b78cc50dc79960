// internal/app/store/replies/replystore.go
package replystore

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
	return &Store{c: db.Collection("discussion_replies")}
}

func (s *Store) Create(ctx context.Context, r models.Reply) (models.Reply, error) {
	r.ID = primitive.NewObjectID()
	if r.RepliedAt.IsZero() {
		r.RepliedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Reply{}, err
	}
	return r, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Reply, error) {
	var r models.Reply
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	return r, err
}

// ListByDiscussion returns replies oldest first.
func (s *Store) ListByDiscussion(ctx context.Context, discussionID primitive.ObjectID) ([]models.Reply, error) {
	cur, err := s.c.Find(ctx, bson.M{"discussion_id": discussionID},
		options.Find().SetSort(bson.D{{Key: "replied_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Reply{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountsByDiscussion returns reply counts for each discussion that has any.
func (s *Store) CountsByDiscussion(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := make(map[primitive.ObjectID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"discussion_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{"_id": "$discussion_id", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// Delete removes a reply by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByDiscussion removes every reply of a discussion.
func (s *Store) DeleteByDiscussion(ctx context.Context, discussionID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"discussion_id": discussionID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every reply in a group's discussions.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the total number of replies.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
