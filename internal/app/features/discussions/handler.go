// internal/app/features/discussions/handler.go
package discussions

import (
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves group discussion threads.
type Handler struct {
	DB       *mongo.Database
	Content  *content.Service
	Registry *groupreg.Service
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, svc *content.Service, reg *groupreg.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Content: svc, Registry: reg, ErrLog: errLog, Log: logger}
}
