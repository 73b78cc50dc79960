package notifications_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/notifications"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func TestServeList_JSON(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	logger := zap.NewNop()
	h := notifications.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)

	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")
	other := fx.CreateStudent(ctx, "Bea", "bea@example.com")
	for _, msg := range []string{"one", "two"} {
		if _, err := h.Notifications.Insert(ctx, models.Notification{UserID: u.ID, Message: msg}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if _, err := h.Notifications.Insert(ctx, models.Notification{UserID: other.ID, Message: "not yours"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/notifications", testutil.FromModel(u))
	req.Header.Set("Accept", "application/json")
	rec := serve(h.ServeList, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int64                 `json:"unread"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Notifications) != 2 || body.Unread != 2 {
		t.Errorf("got %d notifications, %d unread; want 2, 2", len(body.Notifications), body.Unread)
	}
	if body.Notifications[0].Message != "two" {
		t.Errorf("first = %q, want newest first", body.Notifications[0].Message)
	}
}

func TestHandleMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	logger := zap.NewNop()
	h := notifications.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)

	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")
	other := fx.CreateStudent(ctx, "Bea", "bea@example.com")
	n, _ := h.Notifications.Insert(ctx, models.Notification{UserID: u.ID, Message: "hello"})

	req := testutil.WithChiURLParam(testutil.NewFormRequest("/", nil, testutil.FromModel(other)), "notificationID", n.ID.Hex())
	if rec := serve(h.HandleMarkRead, req); rec.Code != http.StatusNotFound {
		t.Errorf("other user: status = %d, want 404", rec.Code)
	}

	req = testutil.WithChiURLParam(testutil.NewFormRequest("/", nil, testutil.FromModel(u)), "notificationID", n.ID.Hex())
	if rec := serve(h.HandleMarkRead, req); rec.Code != http.StatusSeeOther {
		t.Fatalf("owner: status = %d, want 303", rec.Code)
	}
	if c := fx.Count(ctx, "notifications", bson.M{"_id": n.ID, "read": true}); c != 1 {
		t.Error("notification should be read")
	}
}

func TestHandleMarkAllRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	logger := zap.NewNop()
	h := notifications.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)

	u := fx.CreateStudent(ctx, "Ada", "ada@example.com")
	for i := 0; i < 3; i++ {
		_, _ = h.Notifications.Insert(ctx, models.Notification{UserID: u.ID, Message: "n"})
	}

	rec := serve(h.HandleMarkAllRead, testutil.NewFormRequest("/notifications/read-all", nil, testutil.FromModel(u)))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if c := fx.Count(ctx, "notifications", bson.M{"user_id": u.ID, "read": false}); c != 0 {
		t.Errorf("unread = %d, want 0", c)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/notifications/unread", testutil.FromModel(u))
	rec = serve(h.ServeUnreadCount, req)
	if rec.Code != http.StatusOK || rec.Body.String() == "" {
		t.Fatalf("unread count: status = %d", rec.Code)
	}
}

func TestServeUnreadCount_Unauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := notifications.NewHandler(db, uierrors.NewErrorLogger(logger), logger)

	rec := serve(h.ServeUnreadCount, httptest.NewRequest(http.MethodGet, "/notifications/unread", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
