package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/features/logout"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*logout.Handler, *auth.SessionManager) {
	t.Helper()
	logger := zap.NewNop()
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only-32b", "test-session", "", 24*time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return logout.NewHandler(sessionMgr, nil, logger), sessionMgr
}

func TestServeLogout_RedirectsHomeAndExpiresCookie(t *testing.T) {
	h, _ := newTestHandler(t)

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", testutil.StudentUser())
	rec := httptest.NewRecorder()
	h.ServeLogout(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("cookie MaxAge = %d, want negative", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected an expiring session cookie")
	}
}

func TestServeLogout_HTMX(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeLogout(rec, req)

	if rec.Header().Get("HX-Redirect") != "/" {
		t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	h, sm := newTestHandler(t)
	r := logout.Routes(h, sm)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous logout status = %d, want 401", rec.Code)
	}
}
