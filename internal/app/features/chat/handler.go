// internal/app/features/chat/handler.go
package chat

import (
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves group chat: posting, polling, editing, attachments and
// the optional websocket push channel.
type Handler struct {
	DB      *mongo.Database
	Content *content.Service
	Hub     *realtime.Hub // nil disables /ws
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger

	// MaxUploadBytes bounds a multipart request body (attachment plus form
	// fields).
	MaxUploadBytes int64
}

func NewHandler(db *mongo.Database, svc *content.Service, hub *realtime.Hub, maxUpload int64, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:             db,
		Content:        svc,
		Hub:            hub,
		ErrLog:         errLog,
		Log:            logger,
		MaxUploadBytes: maxUpload,
	}
}
