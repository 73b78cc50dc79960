package groupreg_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const desc = "Weekly problem sets and exam practice."

func newService(t *testing.T) (*groupreg.Service, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	svc := groupreg.New(groupreg.Deps{DB: db, Runner: testutil.Runner(db), Log: zap.NewNop()})
	return svc, testutil.NewFixtures(t, db), ctx
}

func TestCreate_PublicGroupWithOwner(t *testing.T) {
	svc, fx, ctx := newService(t)
	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")

	g, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{
		Name: "Algebra Study", Description: desc, Subject: "Math",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.IsPrivate || g.JoinCode != "" {
		t.Errorf("public group should have no join code, got %q", g.JoinCode)
	}

	var m models.GroupMembership
	err = fx.DB().Collection("group_memberships").FindOne(ctx, bson.M{"group_id": g.ID}).Decode(&m)
	if err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if m.UserID != u.ID || m.Role != models.MemberRoleOwner {
		t.Errorf("membership = %+v, want creator as owner", m)
	}
	if n := fx.Count(ctx, "group_memberships", bson.M{"group_id": g.ID}); n != 1 {
		t.Errorf("member count = %d, want 1", n)
	}
}

func TestCreate_PrivateGroupGetsCode(t *testing.T) {
	svc, fx, ctx := newService(t)
	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")

	g1, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{Name: "Secret One", Description: desc, IsPrivate: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	g2, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{Name: "Secret Two", Description: desc, IsPrivate: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g1.JoinCode == "" || g2.JoinCode == "" {
		t.Fatal("private groups must have a join code")
	}
	if g1.JoinCode == g2.JoinCode {
		t.Error("join codes should differ between groups")
	}
}

func TestCreate_ReportsAllViolations(t *testing.T) {
	svc, fx, ctx := newService(t)
	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")

	_, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{
		Name:        "bad*name",
		Description: "too short",
		Subject:     strings.Repeat("s", 51),
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"name", "description", "subject"} {
		if ve.ForField(field) == "" {
			t.Errorf("missing violation for %s in %v", field, ve.Messages())
		}
	}
	if n := fx.Count(ctx, "groups", bson.M{}); n != 0 {
		t.Errorf("groups = %d, want 0", n)
	}
}

func TestCreate_DuplicateNameConflicts(t *testing.T) {
	svc, fx, ctx := newService(t)
	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")
	fx.CreateGroup(ctx, "Algebra Study", u.ID)

	_, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{Name: "algebra study", Description: desc})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCreate_OwnerInsertFailureLeavesNoGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.RequireTransactions(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	svc := groupreg.New(groupreg.Deps{DB: db, Runner: testutil.Runner(db), Log: zap.NewNop()})
	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")

	if err := db.CreateCollection(ctx, "groups"); err != nil {
		t.Fatalf("create groups: %v", err)
	}
	// No membership row can satisfy this validator.
	rejectAll := options.CreateCollection().SetValidator(bson.M{"role": "no-such-role"})
	if err := db.CreateCollection(ctx, "group_memberships", rejectAll); err != nil {
		t.Fatalf("create group_memberships: %v", err)
	}

	_, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{Name: "Half Made", Description: desc})
	if err == nil {
		t.Fatal("Create succeeded although the owner membership was rejected")
	}
	if errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want the insert failure, not a conflict", err)
	}
	if n := fx.Count(ctx, "groups", bson.M{"name": "Half Made"}); n != 0 {
		t.Errorf("groups named Half Made = %d, want 0", n)
	}
	if n := fx.Count(ctx, "group_memberships", bson.M{}); n != 0 {
		t.Errorf("memberships = %d, want 0", n)
	}
}

func TestCreate_InactiveAccountRejected(t *testing.T) {
	svc, fx, ctx := newService(t)
	u := fx.CreatePendingStudent(ctx, "Pat", "pat@example.com")

	_, err := svc.Create(ctx, authz.ActorFor(u), groupreg.Input{Name: "Algebra Study", Description: desc})
	if !errors.Is(err, apperr.ErrInactiveAccount) {
		t.Fatalf("err = %v, want ErrInactiveAccount", err)
	}
}

func TestEdit_OwnerOnly(t *testing.T) {
	svc, fx, ctx := newService(t)
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	member := fx.CreateStudent(ctx, "Member", "member@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	fx.AddMember(ctx, g.ID, member.ID, models.MemberRoleMember)

	in := groupreg.Input{Name: "Algebra II", Description: desc, Subject: "Math"}
	if _, err := svc.Edit(ctx, authz.ActorFor(member), g.ID, in); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("member edit err = %v, want ErrAuthorization", err)
	}
	got, err := svc.Edit(ctx, authz.ActorFor(owner), g.ID, in)
	if err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	if got.Name != "Algebra II" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestDelete_AdminCascades(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", owner.ID)
	fx.CreateMessage(ctx, g.ID, owner.ID, "hi")
	d := fx.CreateDiscussion(ctx, g.ID, owner.ID, "Thread")
	fx.CreateReply(ctx, d, owner.ID, "reply")

	if err := svc.Delete(ctx, authz.ActorFor(owner), g.ID); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("student delete err = %v, want ErrAuthorization", err)
	}
	if err := svc.Delete(ctx, authz.ActorFor(admin), g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, coll := range []string{"group_memberships", "group_messages", "discussions", "discussion_replies"} {
		if n := fx.Count(ctx, coll, bson.M{"group_id": g.ID}); n != 0 {
			t.Errorf("%s: %d orphaned rows", coll, n)
		}
	}
	if err := svc.Delete(ctx, authz.ActorFor(admin), g.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTogglePrivacy_KeepsCode(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	owner := fx.CreateStudent(ctx, "Owner", "owner@example.com")
	g := fx.CreatePrivateGroup(ctx, "Secret Study", owner.ID, "abcd1234")

	private, err := svc.TogglePrivacy(ctx, authz.ActorFor(admin), g.ID)
	if err != nil || private {
		t.Fatalf("first toggle = %v, %v; want public", private, err)
	}
	private, err = svc.TogglePrivacy(ctx, authz.ActorFor(admin), g.ID)
	if err != nil || !private {
		t.Fatalf("second toggle = %v, %v; want private", private, err)
	}
	got, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.JoinCode != "abcd1234" {
		t.Errorf("join code = %q, want original code kept", got.JoinCode)
	}
}

func TestTogglePrivacy_AssignsCodeWhenMissing(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	g := fx.CreateGroup(ctx, "Open Study", admin.ID)

	if _, err := svc.TogglePrivacy(ctx, authz.ActorFor(admin), g.ID); err != nil {
		t.Fatalf("TogglePrivacy: %v", err)
	}
	got, _ := svc.Get(ctx, g.ID)
	if !got.IsPrivate || got.JoinCode == "" {
		t.Errorf("group = %+v, want private with a code", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, ctx := newService(t)
	_, err := svc.Get(ctx, primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		t.Error("store error should not leak")
	}
}
