package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID(), "a@example.com")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex())
	logger.GroupEvent(ctx, audit.EventGroupCreated, primitive.NewObjectID(), primitive.NewObjectID(), "Algebra")
}

func TestLogger_Log_Settings(t *testing.T) {
	tests := []struct {
		setting string
		want    int
	}{
		{"off", 0},
		{"log", 0},
		{"db", 1},
		{"all", 1},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			userID := primitive.NewObjectID()
			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: tt.setting})

			logger.Log(ctx, audit.Event{
				Category:  audit.CategoryAuth,
				EventType: audit.EventLoginSuccess,
				UserID:    &userID,
				Success:   true,
			})

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(events))
			}
		})
	}
}

func TestLogger_LoginFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})

	req := httptest.NewRequest("POST", "/login", nil)
	logger.LoginFailed(ctx, req, audit.EventLoginFailedUserNotFound, primitive.NilObjectID, "unknown@example.com", "user not found")

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != audit.EventLoginFailedUserNotFound {
		t.Errorf("EventType: got %q", e.EventType)
	}
	if e.Success {
		t.Error("expected Success to be false")
	}
	if e.UserID != nil {
		t.Error("expected no UserID for unknown account")
	}
	if e.FailureReason != "user not found" {
		t.Errorf("FailureReason: got %q", e.FailureReason)
	}
}

func TestLogger_Logout_InvalidID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})
	logger.Logout(ctx, httptest.NewRequest("POST", "/logout", nil), "invalid-hex")

	events, _ := store.GetRecent(ctx, 10)
	if len(events) != 1 || events[0].UserID != nil {
		t.Errorf("expected one anonymous logout event, got %+v", events)
	}
}

func TestLogger_MembershipEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	group := primitive.NewObjectID()
	member := primitive.NewObjectID()
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Group: "db"})

	logger.MembershipEvent(ctx, audit.EventMemberRoleChanged, actor, group, member,
		map[string]string{"from": "member", "to": "moderator"})

	events, err := store.Query(ctx, audit.QueryFilter{GroupID: &group})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Category != audit.CategoryGroup {
		t.Errorf("Category: got %q", e.Category)
	}
	if e.ActorID == nil || *e.ActorID != actor {
		t.Error("expected ActorID to be set")
	}
	if e.Details["to"] != "moderator" {
		t.Errorf("Details: got %v", e.Details)
	}
}

func TestLogger_CategoryFilteredByConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "db"})

	logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/login", nil), userID, "s@example.com")
	student := primitive.NewObjectID()
	logger.StudentModerated(ctx, userID, student, audit.EventStudentApproved, nil)

	if ev, _ := store.GetByUser(ctx, userID, 10); len(ev) != 0 {
		t.Error("expected no auth events when auth config is 'off'")
	}
	if ev, _ := store.GetByUser(ctx, student, 10); len(ev) != 1 {
		t.Errorf("expected 1 admin event, got %d", len(ev))
	}
}

func TestClientIP_Precedence(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		wantIP string
	}{
		{"forwarded", "203.0.113.195, 10.0.0.1", "192.168.1.1", "127.0.0.1:1", "203.0.113.195"},
		{"real ip", "", "192.168.1.100", "127.0.0.1:1", "192.168.1.100"},
		{"remote", "", "", "10.0.0.5:12345", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			userID := primitive.NewObjectID()
			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})

			req := httptest.NewRequest("POST", "/login", nil)
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			req.RemoteAddr = tt.remote

			logger.LoginSuccess(ctx, req, userID, "s@example.com")

			events, _ := store.GetByUser(ctx, userID, 10)
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].IP != tt.wantIP {
				t.Errorf("IP: got %q, want %q", events[0].IP, tt.wantIP)
			}
		})
	}
}
