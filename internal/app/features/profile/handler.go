// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns all user profile handlers.
type Handler struct {
	Users    *userstore.Store
	Accounts *accounts.Service
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs a profile Handler.
func NewHandler(db *mongo.Database, acct *accounts.Service, al *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Accounts: acct,
		AuditLog: al,
		Log:      logger,
		ErrLog:   errLog,
	}
}
