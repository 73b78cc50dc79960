// internal/app/policy/grouppolicy/grouppolicy.go
//
// Package grouppolicy decides what an actor may do inside a study group.
//
// Authorization rules:
//   - Admins may view and manage every group
//   - Owners and moderators manage their group (announcements, pins, sessions)
//   - Only admins and owners change member roles
//   - Only the sender edits a message; the sender or an admin deletes it
//   - Accounts that are not Active may read but never write
package grouppolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MemberRole returns userID's role in groupID, or "" when not a member.
func MemberRole(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (string, error) {
	var m struct {
		Role string `bson:"role"`
	}
	err := db.Collection("group_memberships").FindOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		options.FindOne().SetProjection(bson.M{"role": 1}),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// CanView reports whether the actor may read a group's content.
func CanView(a authz.Actor, role string) bool {
	return a.IsAdmin() || role != ""
}

// CanParticipate reports whether the actor may post messages, discussions
// and replies in the group.
func CanParticipate(a authz.Actor, role string) bool {
	return a.CanWrite && (a.IsAdmin() || role != "")
}

// CanManage reports whether the actor may moderate the group: post
// announcements, pin discussions, schedule or cancel sessions.
func CanManage(a authz.Actor, role string) bool {
	if !a.CanWrite {
		return false
	}
	return a.IsAdmin() || role == models.MemberRoleOwner || role == models.MemberRoleModerator
}

// CanChangeRoles reports whether the actor may change member roles.
func CanChangeRoles(a authz.Actor, role string) bool {
	return a.CanWrite && (a.IsAdmin() || role == models.MemberRoleOwner)
}

// CanEditMessage reports whether the actor may edit a message sent by senderID.
func CanEditMessage(a authz.Actor, senderID primitive.ObjectID) bool {
	return a.CanWrite && a.ID == senderID
}

// CanDeleteMessage reports whether the actor may delete a message sent by senderID.
func CanDeleteMessage(a authz.Actor, senderID primitive.ObjectID) bool {
	return a.CanWrite && (a.ID == senderID || a.IsAdmin())
}

// CanDeleteContent reports whether the actor may delete a discussion or
// reply written by authorID in a group where the actor holds role.
func CanDeleteContent(a authz.Actor, role string, authorID primitive.ObjectID) bool {
	return a.CanWrite && (a.ID == authorID || CanManage(a, role))
}
