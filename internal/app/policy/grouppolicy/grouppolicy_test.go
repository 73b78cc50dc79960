package grouppolicy_test

import (
	"testing"

	"github.com/dalemusser/studyhub/internal/app/policy/grouppolicy"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCapabilities(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()
	student := authz.Actor{ID: me, Role: "student", CanWrite: true}
	pending := authz.Actor{ID: me, Role: "student", CanWrite: false}
	admin := authz.Actor{ID: me, Role: "admin", CanWrite: true}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"non-member cannot view", grouppolicy.CanView(student, ""), false},
		{"member can view", grouppolicy.CanView(student, models.MemberRoleMember), true},
		{"admin views any group", grouppolicy.CanView(admin, ""), true},
		{"pending member still views", grouppolicy.CanView(pending, models.MemberRoleMember), true},

		{"member participates", grouppolicy.CanParticipate(student, models.MemberRoleMember), true},
		{"pending member cannot participate", grouppolicy.CanParticipate(pending, models.MemberRoleMember), false},
		{"non-member cannot participate", grouppolicy.CanParticipate(student, ""), false},

		{"member cannot manage", grouppolicy.CanManage(student, models.MemberRoleMember), false},
		{"moderator manages", grouppolicy.CanManage(student, models.MemberRoleModerator), true},
		{"pending owner cannot manage", grouppolicy.CanManage(pending, models.MemberRoleOwner), false},
		{"admin manages", grouppolicy.CanManage(admin, ""), true},

		{"moderator cannot change roles", grouppolicy.CanChangeRoles(student, models.MemberRoleModerator), false},
		{"owner changes roles", grouppolicy.CanChangeRoles(student, models.MemberRoleOwner), true},

		{"sender edits", grouppolicy.CanEditMessage(student, me), true},
		{"admin cannot edit others", grouppolicy.CanEditMessage(admin, other), false},
		{"admin deletes others", grouppolicy.CanDeleteMessage(admin, other), true},
		{"student cannot delete others", grouppolicy.CanDeleteMessage(student, other), false},
		{"pending sender cannot delete", grouppolicy.CanDeleteMessage(pending, me), false},

		{"author deletes own reply", grouppolicy.CanDeleteContent(student, models.MemberRoleMember, me), true},
		{"moderator deletes others' reply", grouppolicy.CanDeleteContent(student, models.MemberRoleModerator, other), true},
		{"member cannot delete others' reply", grouppolicy.CanDeleteContent(student, models.MemberRoleMember, other), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestMemberRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	g := fixtures.CreateGroup(ctx, "G", owner)

	role, err := grouppolicy.MemberRole(ctx, db, g.ID, owner)
	if err != nil || role != models.MemberRoleOwner {
		t.Errorf("owner role = %q, %v", role, err)
	}
	role, err = grouppolicy.MemberRole(ctx, db, g.ID, primitive.NewObjectID())
	if err != nil || role != "" {
		t.Errorf("stranger role = %q, %v", role, err)
	}
}
