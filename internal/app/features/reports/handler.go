// internal/app/features/reports/handler.go
package reports

import (
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	reportsvc "github.com/dalemusser/studyhub/internal/app/services/reports"
	"go.uber.org/zap"
)

// Handler owns the admin report pages (generate, list, view, CSV export).
// Aggregation lives in services/reports; this package only renders.
type Handler struct {
	Reports *reportsvc.Service
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
}

func NewHandler(svc *reportsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Reports: svc,
		Log:     logger,
		ErrLog:  errLog,
	}
}
