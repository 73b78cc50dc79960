package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks. Hub is optional.
type Handler struct {
	Client  *mongo.Client
	Hub     *realtime.Hub
	Log     *zap.Logger
	started time.Time
}

// NewHandler constructs a health Handler with the Mongo client and logger.
func NewHandler(client *mongo.Client, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Hub:     hub,
		Log:     logger,
		started: time.Now(),
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Uptime   string          `json:"uptime"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
	Realtime *realtimeStatus `json:"realtime,omitempty"`
}

type realtimeStatus struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "uptime":"3h2m1s", "realtime":{"rooms":2,"connections":5} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Hub != nil {
		rooms, conns := h.Hub.Stats()
		resp.Realtime = &realtimeStatus{Rooms: rooms, Connections: conns}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
