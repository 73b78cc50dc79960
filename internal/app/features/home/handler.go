package home

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/features/login"
	groupstore "github.com/dalemusser/studyhub/internal/app/store/groups"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		Log: logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRoot sends signed-in users to their landing page and shows visitors
// the public welcome page.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	if role, _, _, ok := authz.UserCtx(r); ok {
		http.Redirect(w, r, login.Landing(role), http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	groups, err := groupstore.New(h.DB).Count(ctx, groupstore.ListFilter{})
	if err != nil {
		h.Log.Warn("home: count groups", zap.Error(err))
	}

	data := struct {
		viewdata.BaseVM
		GroupsCount int64
	}{
		BaseVM:      viewdata.NewBaseVM(r, "Welcome", "/"),
		GroupsCount: groups,
	}

	templates.Render(w, r, "home", data)
}
