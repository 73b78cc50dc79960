// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles within a group.
const (
	MemberRoleOwner     = "owner"
	MemberRoleModerator = "moderator"
	MemberRoleMember    = "member"
)

// MemberRoles lists the valid membership roles in display order.
var MemberRoles = []string{MemberRoleOwner, MemberRoleModerator, MemberRoleMember}

// MemberRoleRank orders roles for member listings (owner first).
func MemberRoleRank(role string) int {
	switch role {
	case MemberRoleOwner:
		return 0
	case MemberRoleModerator:
		return 1
	default:
		return 2
	}
}

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id).
type GroupMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role     string             `bson:"role" json:"role"` // owner | moderator | member
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}
