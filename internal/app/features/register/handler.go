// internal/app/features/register/handler.go
package register

import (
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

type Handler struct {
	Accounts *accounts.Service
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(acct *accounts.Service, al *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Accounts: acct, AuditLog: al, ErrLog: errLog, Log: logger}
}

type formData struct {
	viewdata.BaseVM
	In     accounts.RegisterInput
	AgeRaw string
	Errors map[string]string
}

// ServeForm renders the registration form.
func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	templates.Render(w, r, "register", formData{BaseVM: viewdata.NewBaseVM(r, "Register", "/")})
}

func readForm(r *http.Request) (accounts.RegisterInput, string) {
	ageRaw := strings.TrimSpace(r.PostFormValue("age"))
	age, _ := strconv.Atoi(ageRaw)
	return accounts.RegisterInput{
		FullName:        r.PostFormValue("full_name"),
		NationalID:      r.PostFormValue("national_id"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		Phone:           r.PostFormValue("phone"),
		Age:             age,
		Address:         r.PostFormValue("address"),
		Town:            r.PostFormValue("town"),
		Region:          r.PostFormValue("region"),
		Postcode:        r.PostFormValue("postcode"),
		Country:         r.PostFormValue("country"),
	}, ageRaw
}

// HandleSubmit creates a Pending student account. All violations are shown
// together on the re-rendered form.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse register form", err, "Invalid form submission.", "/register")
		return
	}
	in, ageRaw := readForm(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register")
	defer cancel()

	u, err := h.Accounts.Register(ctx, in)
	if err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			in.Password, in.ConfirmPassword = "", ""
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "register", formData{
				BaseVM: viewdata.NewBaseVM(r, "Register", "/"),
				In:     in,
				AgeRaw: ageRaw,
				Errors: fields,
			})
			return
		}
		h.ErrLog.HandleServiceError(w, r, "register", err, "/register")
		return
	}

	h.AuditLog.Registered(r.Context(), r, u.ID, u.Email, u.Role)
	h.Log.Info("student registered", zap.String("user_id", u.ID.Hex()))
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}
