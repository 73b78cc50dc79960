package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/features/health"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type sub struct{ id string }

func (s sub) ID() string               { return s.id }
func (s sub) UserID() string           { return "u-" + s.id }
func (s sub) Send([]byte) error        { return nil }
func (s sub) Close(code int, _ string) {}

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
	Realtime *struct {
		Rooms       int `json:"rooms"`
		Connections int `json:"connections"`
	} `json:"realtime"`
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	hub := realtime.NewHub(zap.NewNop())
	hub.Subscribe("g1", sub{"a"})
	hub.Subscribe("g1", sub{"b"})
	hub.Subscribe("g2", sub{"c"})

	h := health.NewHandler(db.Client(), hub, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var got response
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "ok" || got.Database != "connected" || got.Uptime == "" {
		t.Errorf("got %+v", got)
	}
	if got.Realtime == nil || got.Realtime.Rooms != 2 || got.Realtime.Connections != 3 {
		t.Errorf("realtime = %+v, want 2 rooms / 3 connections", got.Realtime)
	}
}

func TestServe_DatabaseUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	h := health.NewHandler(client, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var got response
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "error" || got.Database != "disconnected" || got.Realtime != nil {
		t.Errorf("got %+v", got)
	}
}
