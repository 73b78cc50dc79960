// internal/app/features/groups/handler.go
package groups

import (
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	"github.com/dalemusser/studyhub/internal/app/services/ledger"
	"github.com/dalemusser/studyhub/internal/app/services/schedule"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
// Browsing reads Mongo directly through the query packages; every change
// goes through the registry or the membership ledger.
type Handler struct {
	DB       *mongo.Database
	Registry *groupreg.Service
	Ledger   *ledger.Service
	Content  *content.Service
	Schedule *schedule.Service
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	// PollMillis is the chat refresh interval handed to the page script.
	PollMillis int64
}

// Deps groups the services the feature needs.
type Deps struct {
	DB       *mongo.Database
	Registry *groupreg.Service
	Ledger   *ledger.Service
	Content  *content.Service
	Schedule *schedule.Service
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	PollInterval time.Duration
}

// NewHandler constructs a new groups Handler. It is typically called
// from the bootstrap BuildHandler function.
func NewHandler(d Deps) *Handler {
	if d.PollInterval <= 0 {
		d.PollInterval = 5 * time.Second
	}
	return &Handler{
		DB:       d.DB,
		Registry: d.Registry,
		Ledger:   d.Ledger,
		Content:  d.Content,
		Schedule: d.Schedule,
		ErrLog:   d.ErrLog,
		Log:      d.Log,

		PollMillis: d.PollInterval.Milliseconds(),
	}
}
