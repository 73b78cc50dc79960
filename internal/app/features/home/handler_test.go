package home_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/features/home"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *home.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return home.NewHandler(db, zap.NewNop())
}

func TestServeRoot_Unauthenticated(t *testing.T) {
	handler := newTestHandler(t)
	rec := httptest.NewRecorder()

	// Template rendering panics without a booted engine.
	func() {
		defer func() { _ = recover() }()
		handler.ServeRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	}()

	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("visitor redirected to %q", loc)
	}
}

func TestServeRoot_SignedInRedirects(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		user testutil.TestUser
		want string
	}{
		{testutil.AdminUser(), "/admin"},
		{testutil.StudentUser(), "/dashboard"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeRoot(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", tt.user))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != tt.want {
			t.Errorf("%s: got %d %q, want 303 %q", tt.user.Role, rec.Code, rec.Header().Get("Location"), tt.want)
		}
	}
}
