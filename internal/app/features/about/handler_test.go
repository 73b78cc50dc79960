package about_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/features/about"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.uber.org/zap"
)

func TestServeAbout(t *testing.T) {
	h := about.NewHandler(zap.NewNop())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/about", nil),
		testutil.NewAuthenticatedRequest(http.MethodGet, "/about", testutil.StudentUser()),
	} {
		rec := httptest.NewRecorder()
		// Template rendering panics without a booted engine.
		func() {
			defer func() { _ = recover() }()
			h.ServeAbout(rec, req)
		}()
		if loc := rec.Header().Get("Location"); loc != "" {
			t.Errorf("about page redirected to %q", loc)
		}
	}
}
