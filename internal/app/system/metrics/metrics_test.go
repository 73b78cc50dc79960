package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.Login("success")
	m.Group("created")
	m.Membership("joined")
	m.Message("posted")
	m.Reminder("sent", 3)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("nil middleware should pass through, got %d", rec.Code)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/groups/"+id, nil))
	}

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest("GET", "/metrics", nil))
	body := out.Body.String()
	want := `studyhub_http_requests_total{method="GET",route="/groups/{id}",status="200"} 3`
	if !strings.Contains(body, want) {
		t.Errorf("expected %q in exposition output", want)
	}
}

func TestDomainCounters(t *testing.T) {
	m := metrics.New()
	m.Reminder("sent", 2)
	m.Reminder("duplicate", 1)
	m.Reminder("failed", 0)

	n, err := testutil.GatherAndCount(m.Registry(), "studyhub_reminders_dispatched_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 reminder series, got %d", n)
	}
}
