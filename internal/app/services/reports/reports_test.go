package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/services/reports"
	auditstore "github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func newService(t *testing.T) (*reports.Service, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	return reports.New(reports.Deps{DB: db}), testutil.NewFixtures(t, db), ctx
}

func today() time.Time {
	return time.Now().UTC()
}

func TestGenerate_AdminOnly(t *testing.T) {
	svc, fx, ctx := newService(t)
	student := fx.CreateStudent(ctx, "Student", "s@example.com")

	_, err := svc.Generate(ctx, authz.ActorFor(student), reports.Request{
		Type: models.ReportSystemUsage, Start: today(), End: today(),
	})
	if !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("err = %v, want ErrAuthorization", err)
	}
}

func TestGenerate_Validation(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")

	_, err := svc.Generate(ctx, authz.ActorFor(admin), reports.Request{
		Type: "bogus", Start: today(), End: today().AddDate(0, 0, -2),
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.ForField("report_type") == "" || ve.ForField("end_date") == "" {
		t.Errorf("violations = %v", ve.Messages())
	}
}

func TestGenerate_UserActivity(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	student := fx.CreateStudent(ctx, "Student", "s@example.com")
	g := fx.CreateGroup(ctx, "Algebra Study", student.ID)
	fx.CreateMessage(ctx, g.ID, student.ID, "hello")
	fx.CreateMessage(ctx, g.ID, student.ID, "again")
	fx.CreateDiscussion(ctx, g.ID, student.ID, "Question")

	events := auditstore.New(fx.DB())
	for _, ev := range []string{auditstore.EventLoginSuccess, auditstore.EventLoginSuccess, auditstore.EventLoginFailedWrongPassword} {
		if err := events.Log(ctx, auditstore.Event{Category: auditstore.CategoryAuth, EventType: ev}); err != nil {
			t.Fatalf("seed audit: %v", err)
		}
	}

	r, err := svc.Generate(ctx, authz.ActorFor(admin), reports.Request{
		Type: models.ReportUserActivity, Start: today(), End: today(),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var ua reports.UserActivity
	if err := reports.Decode(r, &ua); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ua.Registrations != 2 || ua.Logins != 2 || ua.FailedLogins != 1 {
		t.Errorf("activity = %+v", ua)
	}
	if ua.MessagesPosted != 2 || ua.DiscussionsPosted != 1 {
		t.Errorf("content counts = %+v", ua)
	}

	stored, err := svc.Get(ctx, authz.ActorFor(admin), r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Type != models.ReportUserActivity || stored.AdminID != admin.ID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestGenerate_GroupEngagementAndUsage(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	owner := fx.CreateStudent(ctx, "Owner", "o@example.com")
	busy := fx.CreateGroup(ctx, "Busy Group", owner.ID)
	fx.CreateGroup(ctx, "Quiet Group", owner.ID)
	fx.CreateMessage(ctx, busy.ID, owner.ID, "one")
	d := fx.CreateDiscussion(ctx, busy.ID, owner.ID, "Topic")
	fx.CreateReply(ctx, d, owner.ID, "reply")

	a := authz.ActorFor(admin)
	r, err := svc.Generate(ctx, a, reports.Request{Type: models.ReportGroupEngagement, Start: today(), End: today()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var ge reports.GroupEngagement
	if err := reports.Decode(r, &ge); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(ge.Groups) != 2 || ge.Groups[0].GroupName != "Busy Group" {
		t.Fatalf("groups = %+v", ge.Groups)
	}
	if row := ge.Groups[0]; row.Messages != 1 || row.Discussions != 1 || row.Replies != 1 {
		t.Errorf("busy row = %+v", row)
	}

	r, err = svc.Generate(ctx, a, reports.Request{Type: models.ReportSystemUsage, Start: today(), End: today()})
	if err != nil {
		t.Fatalf("Generate usage: %v", err)
	}
	var su reports.SystemUsage
	if err := reports.Decode(r, &su); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if su.Groups != 2 || su.Messages != 1 || su.Discussions != 1 {
		t.Errorf("usage = %+v", su)
	}
	if su.UsersByStatus[models.StatusActive] != 2 {
		t.Errorf("users by status = %v", su.UsersByStatus)
	}
}

func TestListAndDelete(t *testing.T) {
	svc, fx, ctx := newService(t)
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	a := authz.ActorFor(admin)

	r, err := svc.Generate(ctx, a, reports.Request{Type: models.ReportResourceDownloads, Start: today(), End: today()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	list, err := svc.List(ctx, a)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
	if list[0].Data != nil {
		t.Error("List should omit payloads")
	}

	if err := svc.Delete(ctx, a, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := fx.Count(ctx, "reports", bson.M{}); n != 0 {
		t.Errorf("reports = %d, want 0", n)
	}
	if err := svc.Delete(ctx, a, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}
