package auditlog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/features/auditlog"
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*auditlog.Handler, *testutil.Fixtures, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	logger := zap.NewNop()
	return auditlog.NewHandler(db, uierrors.NewErrorLogger(logger), logger), testutil.NewFixtures(t, db), ctx
}

func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func TestServeList_Unauthenticated(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(h.ServeList, testutil.NewRequest(http.MethodGet, "/audit"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServeList_FiltersDoNotFail(t *testing.T) {
	h, fx, ctx := newTestHandler(t)
	admin := fx.CreateAdmin(ctx, "Root", "root@example.com")
	if err := h.Events.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &admin.ID,
		Success:   true,
	}); err != nil {
		t.Fatalf("log event: %v", err)
	}

	targets := []string{
		"/audit",
		"/audit?category=auth&event=login_success",
		"/audit?category=bogus&event=nope&user=xyz&start=yesterday&page=-3",
		"/audit?user=" + admin.ID.Hex() + "&start=2020-01-01&end=2099-12-31&page=2",
	}
	for _, target := range targets {
		req := testutil.NewAuthenticatedRequest(http.MethodGet, target, testutil.FromModel(admin))
		rec := serve(h.ServeList, req)
		if rec.Code >= 400 {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
}
