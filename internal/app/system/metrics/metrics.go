// Package metrics exposes Prometheus counters for the HTTP layer and the
// group/content lifecycle. All methods are safe on a nil *Metrics so
// callers never need to check whether metrics are enabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studyhub"

// Metrics holds the registry and every collector the app records to.
type Metrics struct {
	reg *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	logins    *prometheus.CounterVec
	groups    *prometheus.CounterVec
	members   *prometheus.CounterVec
	messages  *prometheus.CounterVec
	reminders *prometheus.CounterVec
}

// New builds a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "group_events_total",
			Help: "Group lifecycle events (created, deleted, cascaded).",
		}, []string{"event"}),
		members: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "membership_events_total",
			Help: "Membership events (joined, left, role_changed).",
		}, []string{"event"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "message_events_total",
			Help: "Chat message events (posted, edited, deleted).",
		}, []string{"event"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reminders_dispatched_total",
			Help: "Reminder dispatch outcomes (sent, duplicate, failed).",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.logins, m.groups, m.members, m.messages, m.reminders,
	)
	return m
}

// Registry returns the underlying registry (for tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by chi route pattern,
// so /groups/{id} is one series rather than one per group.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Login records a login attempt result ("success", "failure", "limited").
func (m *Metrics) Login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

// Group records a group lifecycle event.
func (m *Metrics) Group(event string) {
	if m != nil {
		m.groups.WithLabelValues(event).Inc()
	}
}

// Membership records a membership event.
func (m *Metrics) Membership(event string) {
	if m != nil {
		m.members.WithLabelValues(event).Inc()
	}
}

// Message records a chat message event.
func (m *Metrics) Message(event string) {
	if m != nil {
		m.messages.WithLabelValues(event).Inc()
	}
}

// Reminder records a reminder dispatch outcome.
func (m *Metrics) Reminder(result string, n int) {
	if m != nil && n > 0 {
		m.reminders.WithLabelValues(result).Add(float64(n))
	}
}
