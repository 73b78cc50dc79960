// internal/app/features/schedule/handler.go
package schedule

import (
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	schedulesvc "github.com/dalemusser/studyhub/internal/app/services/schedule"
	"go.uber.org/zap"
)

// Handler serves the study-session agenda and scheduling forms.
type Handler struct {
	Schedule *schedulesvc.Service
	Registry *groupreg.Service
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	// DefaultZone preselects the timezone on the scheduling form.
	DefaultZone string
}

func NewHandler(sched *schedulesvc.Service, reg *groupreg.Service, defaultZone string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &Handler{Schedule: sched, Registry: reg, DefaultZone: defaultZone, ErrLog: errLog, Log: logger}
}
