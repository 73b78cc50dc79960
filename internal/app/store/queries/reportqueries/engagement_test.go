package reportqueries_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/store/queries/reportqueries"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
)

func TestGroupEngagement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateStudent(ctx, "U", "u@x.com")
	v := fixtures.CreateStudent(ctx, "V", "v@x.com")
	busy := fixtures.CreateGroup(ctx, "Busy", u.ID)
	quiet := fixtures.CreateGroup(ctx, "Quiet", u.ID)

	fixtures.AddMember(ctx, busy.ID, v.ID, models.MemberRoleMember)
	fixtures.CreateMessage(ctx, busy.ID, u.ID, "a")
	fixtures.CreateMessage(ctx, busy.ID, v.ID, "b")
	d := fixtures.CreateDiscussion(ctx, busy.ID, u.ID, "t")
	fixtures.CreateReply(ctx, d, v.ID, "r")

	rows, err := reportqueries.GroupEngagement(ctx, db, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("GroupEngagement: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	top := rows[0]
	if top.GroupID != busy.ID {
		t.Fatalf("busiest group first, got %q", top.GroupName)
	}
	if top.Messages != 2 || top.Discussions != 1 || top.Replies != 1 || top.NewMembers != 2 {
		t.Errorf("busy row = %+v", top)
	}
	if rows[1].GroupID != quiet.ID || rows[1].NewMembers != 1 {
		t.Errorf("quiet row = %+v", rows[1])
	}
}
