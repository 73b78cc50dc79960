package groupmembers

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type GroupMember struct {
	User     models.User `bson:"user" json:"user"`
	Role     string      `bson:"role" json:"role"`
	JoinedAt time.Time   `bson:"joined_at" json:"joined_at"`
}

// MemberFilter controls filtering for users in the membership list.
// Leave Status empty ("") to include all statuses.
type MemberFilter struct {
	Status string // "Active" | "Pending" | "Banned" | ""
}

// ListGroupMembersWithStatus returns the members of a group joined with
// their user documents, ordered owner, moderator, member and then by name.
func ListGroupMembersWithStatus(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID, f MemberFilter) ([]GroupMember, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"group_id": groupID}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		bson.D{{Key: "$unwind", Value: "$user"}},
	}

	if f.Status != "" {
		pipe = append(pipe, bson.D{{Key: "$match", Value: bson.M{"user.status": f.Status}}})
	}

	pipe = append(pipe,
		bson.D{{Key: "$addFields", Value: bson.M{
			"role_rank": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$eq": bson.A{"$role", models.MemberRoleOwner}}, "then": 0},
					bson.M{"case": bson.M{"$eq": bson.A{"$role", models.MemberRoleModerator}}, "then": 1},
				},
				"default": 2,
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "role_rank", Value: 1},
			{Key: "user.full_name_ci", Value: 1},
			{Key: "user._id", Value: 1},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"user":      bson.M{"_id": "$user._id", "full_name": "$user.full_name", "email": "$user.email", "role": "$user.role", "status": "$user.status"},
			"role":      1,
			"joined_at": 1,
		}}},
	)

	cur, err := db.Collection("group_memberships").Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []GroupMember{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListGroupMembers returns every member regardless of account status.
func ListGroupMembers(ctx context.Context, db *mongo.Database, groupID primitive.ObjectID) ([]GroupMember, error) {
	return ListGroupMembersWithStatus(ctx, db, groupID, MemberFilter{})
}
