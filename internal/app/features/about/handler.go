// internal/app/features/about/handler.go
package about

import (
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

func (h *Handler) ServeAbout(w http.ResponseWriter, r *http.Request) {
	templates.Render(w, r, "about", viewdata.NewBaseVM(r, "About", "/"))
}
