// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, al *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   al,
	}
}

// ServeLogout clears the session cookie and sends the browser home.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	var uid string
	if u, ok := auth.CurrentUser(r); ok {
		uid = u.ID
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		// The cookie is expired client-side regardless; log and carry on.
		h.Log.Warn("logout: clear session", zap.Error(err))
	}
	h.AuditLog.Logout(r.Context(), r, uid)

	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
