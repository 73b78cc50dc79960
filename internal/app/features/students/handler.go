// internal/app/features/students/handler.go
package students

import (
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin student-management pages.
type Handler struct {
	Users       *userstore.Store
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Accounts    *accounts.Service
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, acct *accounts.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Accounts:    acct,
		ErrLog:      errLog,
		Log:         logger,
	}
}
