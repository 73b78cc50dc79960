// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts   *accounts.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter // nil disables throttling
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

type loginFormData struct {
	viewdata.BaseVM
	Error     string
	Email     string
	ReturnURL string
	Notice    string
}

func NewHandler(acct *accounts.Service, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, al *auditlog.Logger, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   acct,
		SessionMgr: sm,
		Limiter:    limiter,
		AuditLog:   al,
		Metrics:    m,
		ErrLog:     errLog,
		Log:        logger,
	}
}

// Landing is where a user goes after signing in.
func Landing(role string) string {
	if role == models.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// ServeLogin renders the sign-in form. Signed-in users go to their landing page.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, Landing(u.Role), http.StatusSeeOther)
		return
	}
	data := loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		ReturnURL: r.URL.Query().Get("return"),
	}
	if r.URL.Query().Get("registered") == "1" {
		data.Notice = "Registration complete. An administrator will review your account; you can sign in now."
	}
	templates.Render(w, r, "login", data)
}

// HandleLoginPost verifies credentials and starts a session. Every
// credential failure shows the same message.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse login form", err, "Invalid form submission.", "/login")
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	ret := r.PostFormValue("return")

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailed(r.Context(), r, audit.EventLoginFailedRateLimit, primitive.NilObjectID, email, "rate limited")
			h.Metrics.Login("rate_limited")
			h.renderError(w, r, http.StatusTooManyRequests, reason, email, ret)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Accounts.Authenticate(ctx, email, password)
	if err != nil {
		var af *accounts.AuthFailure
		if errors.As(err, &af) {
			h.AuditLog.LoginFailed(r.Context(), r, af.Reason, af.UserID, email, "")
			h.Metrics.Login("failed")
			h.renderError(w, r, http.StatusUnauthorized, apperr.UserMessage(err), email, ret)
			return
		}
		h.ErrLog.LogServerError(w, r, "login lookup failed", err, apperr.GenericFailure, "/login")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, auth.SessionUser{
		ID:       u.ID.Hex(),
		Name:     u.FullName,
		Email:    u.Email,
		Role:     u.Role,
		Status:   u.Status,
		IsActive: u.IsActive,
	}); err != nil {
		h.ErrLog.LogServerError(w, r, "session save failed", err, apperr.GenericFailure, "/login")
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(r.Context(), r, u.ID, u.Email)
	h.Metrics.Login("success")
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))

	http.Redirect(w, r, urlutil.SafeReturn(ret, "", Landing(u.Role)), http.StatusSeeOther)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg, email, ret string) {
	w.WriteHeader(status)
	templates.Render(w, r, "login", loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Sign in", "/"),
		Error:     msg,
		Email:     email,
		ReturnURL: ret,
	})
}
