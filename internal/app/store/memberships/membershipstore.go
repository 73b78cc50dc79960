// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var (
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrBadRole             = errors.New(`role must be "owner", "moderator" or "member"`)
)

// Add creates the membership row for (groupID, userID).
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) (models.GroupMembership, error) {
	if !slices.Contains(models.MemberRoles, role) {
		return models.GroupMembership{}, ErrBadRole
	}
	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, ErrDuplicateMembership
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// Get returns mongo.ErrNoDocuments when userID is not in groupID.
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	var m models.GroupMembership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	return m, err
}

// Exists reports whether userID belongs to groupID.
func (s *Store) Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "user_id": userID}, options.Count().SetLimit(1))
	return n > 0, err
}

// Remove deletes the membership document for (groupID, userID).
// Returns the number of documents deleted (0 or 1).
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SetRole changes a member's role.
func (s *Store) SetRole(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if !slices.Contains(models.MemberRoles, role) {
		return ErrBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByGroup removes all memberships of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships of a user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByGroup counts members of a group; role "" counts every role.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID, role string) (int64, error) {
	q := bson.M{"group_id": groupID}
	if role != "" {
		q["role"] = role
	}
	return s.c.CountDocuments(ctx, q)
}

// CountsByGroup returns member counts for each of groupIDs. Groups with no
// members are absent from the map.
func (s *Store) CountsByGroup(ctx context.Context, groupIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	out := make(map[primitive.ObjectID]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return out, nil
	}
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"group_id": bson.M{"$in": groupIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$group_id", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			GroupID primitive.ObjectID `bson:"_id"`
			N       int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.GroupID] = row.N
	}
	return out, cur.Err()
}

// ListByGroup returns a group's memberships, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.find(ctx, bson.M{"group_id": groupID})
}

// ListByUser returns a user's memberships, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// GroupIDsForUser returns the IDs of every group userID belongs to.
func (s *Store) GroupIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ms, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.GroupID)
	}
	return ids, nil
}

// JoinedBetween counts memberships created in [start, end) per group.
func (s *Store) JoinedBetween(ctx context.Context, start, end time.Time) (map[primitive.ObjectID]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"joined_at": bson.M{"$gte": start, "$lt": end}}}},
		{{Key: "$group", Value: bson.M{"_id": "$group_id", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[primitive.ObjectID]int64{}
	for cur.Next(ctx) {
		var row struct {
			GroupID primitive.ObjectID `bson:"_id"`
			N       int64              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.GroupID] = row.N
	}
	return out, cur.Err()
}

func (s *Store) find(ctx context.Context, q bson.M) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
