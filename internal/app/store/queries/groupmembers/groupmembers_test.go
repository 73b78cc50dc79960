package groupmembers_test

import (
	"testing"

	"github.com/dalemusser/studyhub/internal/app/store/queries/groupmembers"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
)

func TestListGroupMembers_OrderedByRoleThenName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateStudent(ctx, "Zed Owner", "z@x.com")
	mod := fixtures.CreateStudent(ctx, "Yan Mod", "y@x.com")
	bob := fixtures.CreateStudent(ctx, "Bob", "b@x.com")
	amy := fixtures.CreatePendingStudent(ctx, "Amy", "a@x.com")

	g := fixtures.CreateGroup(ctx, "Chem", owner.ID)
	fixtures.AddMember(ctx, g.ID, bob.ID, models.MemberRoleMember)
	fixtures.AddMember(ctx, g.ID, amy.ID, models.MemberRoleMember)
	fixtures.AddMember(ctx, g.ID, mod.ID, models.MemberRoleModerator)

	got, err := groupmembers.ListGroupMembers(ctx, db, g.ID)
	if err != nil {
		t.Fatalf("ListGroupMembers: %v", err)
	}
	want := []string{"Zed Owner", "Yan Mod", "Amy", "Bob"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].User.FullName != name {
			t.Errorf("position %d = %q, want %q", i, got[i].User.FullName, name)
		}
	}
	if got[0].User.PasswordHash != "" {
		t.Error("password hash must not be projected")
	}

	active, err := groupmembers.ListGroupMembersWithStatus(ctx, db, g.ID, groupmembers.MemberFilter{Status: models.StatusActive})
	if err != nil {
		t.Fatalf("ListGroupMembersWithStatus: %v", err)
	}
	if len(active) != 3 {
		t.Errorf("active members = %d, want 3", len(active))
	}
}
