package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/services/ledger"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*ledger.Service, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	svc := ledger.New(ledger.Deps{DB: db, Runner: testutil.Runner(db), Log: zap.NewNop()})
	return svc, testutil.NewFixtures(t, db), ctx
}

func TestJoin_PublicGroup(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	u := fx.CreateStudent(ctx, "Ben", "ben@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)

	m, err := svc.Join(ctx, authz.ActorFor(u), g.ID, "")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if m.Role != models.MemberRoleMember {
		t.Errorf("role = %q, want member", m.Role)
	}
	if _, err := svc.Join(ctx, authz.ActorFor(u), g.ID, ""); !errors.Is(err, apperr.ErrAlreadyMember) {
		t.Errorf("second join err = %v, want ErrAlreadyMember", err)
	}
}

func TestJoin_PrivateGroupRequiresExactCode(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	u := fx.CreateStudent(ctx, "Ben", "ben@example.com")
	g := fx.CreatePrivateGroup(ctx, "Secret Study", owner.ID, "a1b2c3d4")

	for _, code := range []string{"", "A1B2C3D4", "a1b2c3d", "a1b2c3d4 ", "zzzzzzzz"} {
		if _, err := svc.Join(ctx, authz.ActorFor(u), g.ID, code); !errors.Is(err, apperr.ErrInvalidCode) {
			t.Errorf("code %q: err = %v, want ErrInvalidCode", code, err)
		}
	}
	if n := fx.Count(ctx, "group_memberships", bson.M{"group_id": g.ID}); n != 1 {
		t.Fatalf("members = %d after bad codes, want 1", n)
	}
	if _, err := svc.Join(ctx, authz.ActorFor(u), g.ID, "a1b2c3d4"); err != nil {
		t.Fatalf("join with correct code: %v", err)
	}
}

func TestJoin_PendingAccountRejected(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	u := fx.CreatePendingStudent(ctx, "Pat", "pat@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)

	if _, err := svc.Join(ctx, authz.ActorFor(u), g.ID, ""); !errors.Is(err, apperr.ErrInactiveAccount) {
		t.Fatalf("err = %v, want ErrInactiveAccount", err)
	}
}

func TestLeave_OwnerCannotLeave(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)

	_, err := svc.Leave(ctx, authz.ActorFor(owner), g.ID)
	if !errors.Is(err, apperr.ErrOwnerCannotLeave) {
		t.Fatalf("err = %v, want ErrOwnerCannotLeave", err)
	}
	if n := fx.Count(ctx, "group_memberships", bson.M{"group_id": g.ID, "user_id": owner.ID}); n != 1 {
		t.Error("owner membership must be unchanged")
	}
}

func TestLeave_MemberLeavesAndRemindersGo(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	u := fx.CreateStudent(ctx, "Ben", "ben@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	fx.AddMember(ctx, g.ID, u.ID, models.MemberRoleMember)
	s := fx.CreateSession(ctx, g.ID, owner.ID, "Prep", time.Now().Add(time.Hour))
	fx.CreateReminder(ctx, s, u.ID)

	res, err := svc.Leave(ctx, authz.ActorFor(u), g.ID)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if res.GroupDeleted {
		t.Error("group with an owner left should survive")
	}
	if n := fx.Count(ctx, "session_reminders", bson.M{"user_id": u.ID}); n != 0 {
		t.Errorf("reminders = %d, want 0", n)
	}
	if _, err := svc.Leave(ctx, authz.ActorFor(u), g.ID); !errors.Is(err, apperr.ErrNotMember) {
		t.Errorf("second leave err = %v, want ErrNotMember", err)
	}
}

func TestLeave_LastMemberCascades(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	u := fx.CreateStudent(ctx, "Ben", "ben@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	// Leave a group whose owner record is gone so u is the last member.
	if _, err := fx.DB().Collection("group_memberships").DeleteMany(ctx, bson.M{"group_id": g.ID}); err != nil {
		t.Fatalf("clear memberships: %v", err)
	}
	fx.AddMember(ctx, g.ID, u.ID, models.MemberRoleMember)
	fx.CreateMessage(ctx, g.ID, u.ID, "hello")
	d := fx.CreateDiscussion(ctx, g.ID, u.ID, "Thread")
	fx.CreateReply(ctx, d, u.ID, "reply")
	fx.CreateSession(ctx, g.ID, u.ID, "Prep", time.Now().Add(time.Hour))

	res, err := svc.Leave(ctx, authz.ActorFor(u), g.ID)
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if !res.GroupDeleted {
		t.Fatal("expected empty group to be deleted")
	}
	if n := fx.Count(ctx, "groups", bson.M{"_id": g.ID}); n != 0 {
		t.Error("group row remains")
	}
	for _, coll := range []string{"group_messages", "discussions", "discussion_replies", "study_sessions"} {
		if n := fx.Count(ctx, coll, bson.M{"group_id": g.ID}); n != 0 {
			t.Errorf("%s: %d orphaned rows", coll, n)
		}
	}
}

func TestChangeRole(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	mod := fx.CreateStudent(ctx, "Mod", "mod@example.com")
	u := fx.CreateStudent(ctx, "Ben", "ben@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	fx.AddMember(ctx, g.ID, mod.ID, models.MemberRoleModerator)
	fx.AddMember(ctx, g.ID, u.ID, models.MemberRoleMember)

	if err := svc.ChangeRole(ctx, authz.ActorFor(mod), g.ID, u.ID, models.MemberRoleModerator); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("moderator changing roles: err = %v, want ErrAuthorization", err)
	}
	if err := svc.ChangeRole(ctx, authz.ActorFor(owner), g.ID, u.ID, "superuser"); err == nil {
		t.Error("expected invalid role to be rejected")
	}
	if err := svc.ChangeRole(ctx, authz.ActorFor(owner), g.ID, u.ID, models.MemberRoleModerator); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if n := fx.Count(ctx, "group_memberships", bson.M{"user_id": u.ID, "role": models.MemberRoleModerator}); n != 1 {
		t.Error("role not updated")
	}
}

func TestChangeRole_LastOwnerGuard(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	u := fx.CreateStudent(ctx, "Ben", "ben@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	fx.AddMember(ctx, g.ID, u.ID, models.MemberRoleMember)

	err := svc.ChangeRole(ctx, authz.ActorFor(owner), g.ID, owner.ID, models.MemberRoleMember)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("demote last owner: err = %v, want ErrConflict", err)
	}

	if err := svc.ChangeRole(ctx, authz.ActorFor(owner), g.ID, u.ID, models.MemberRoleOwner); err != nil {
		t.Fatalf("promote second owner: %v", err)
	}
	if err := svc.ChangeRole(ctx, authz.ActorFor(owner), g.ID, owner.ID, models.MemberRoleMember); err != nil {
		t.Fatalf("demote with another owner present: %v", err)
	}
}
