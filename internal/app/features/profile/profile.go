// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/shared"
	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/viewdata"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// profileData is the view model for the profile page.
type profileData struct {
	viewdata.BaseVM

	Email      string
	NationalID string
	Status     string
	In         accounts.ProfileInput

	Errors         map[string]string
	PasswordErrors map[string]string
	Success        string
}

func (h *Handler) load(ctx context.Context, r *http.Request, uid primitive.ObjectID) (profileData, error) {
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return profileData{}, err
	}
	return profileData{
		BaseVM:     viewdata.NewBaseVM(r, "Profile", "/"),
		Email:      u.Email,
		NationalID: u.NationalID,
		Status:     u.Status,
		In:         inputFrom(*u),
	}, nil
}

func inputFrom(u models.User) accounts.ProfileInput {
	return accounts.ProfileInput{
		FullName: u.FullName,
		Phone:    u.Profile.Phone,
		Age:      u.Profile.Age,
		Address:  u.Profile.Address,
		Town:     u.Profile.Town,
		Region:   u.Profile.Region,
		Postcode: u.Profile.Postcode,
		Country:  u.Profile.Country,
	}
}

// ServeProfile renders the user's profile page. Pending and banned users
// land here when they try anything else.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	data, err := h.load(ctx, r, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile failed", err, "Could not load your profile.", "/")
		return
	}
	switch r.URL.Query().Get("success") {
	case "profile":
		data.Success = "Profile saved."
	case "password":
		data.Success = "Password changed successfully."
	}
	templates.Render(w, r, "profile", data)
}

// HandleUpdateProfile saves the self-editable fields.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/profile")
		return
	}

	age, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("age")))
	in := accounts.ProfileInput{
		FullName: r.PostFormValue("full_name"),
		Phone:    r.PostFormValue("phone"),
		Age:      age,
		Address:  r.PostFormValue("address"),
		Town:     r.PostFormValue("town"),
		Region:   r.PostFormValue("region"),
		Postcode: r.PostFormValue("postcode"),
		Country:  r.PostFormValue("country"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Accounts.UpdateProfile(ctx, uid, in); err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			data, lerr := h.load(ctx, r, uid)
			if lerr != nil {
				h.ErrLog.LogServerError(w, r, "load profile failed", lerr, "Could not load your profile.", "/")
				return
			}
			data.In = in
			data.Errors = fields
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "profile", data)
			return
		}
		h.ErrLog.HandleServiceError(w, r, "update profile", err, "/profile")
		return
	}
	http.Redirect(w, r, "/profile?success=profile", http.StatusSeeOther)
}

// HandleChangePassword processes the password change form.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", "/profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Accounts.ChangePassword(ctx, uid,
		r.PostFormValue("current_password"),
		r.PostFormValue("new_password"),
		r.PostFormValue("confirm_password"))
	if err != nil {
		if fields, ok := shared.FieldErrors(err); ok {
			data, lerr := h.load(ctx, r, uid)
			if lerr != nil {
				h.ErrLog.LogServerError(w, r, "load profile failed", lerr, "Could not load your profile.", "/")
				return
			}
			data.PasswordErrors = fields
			w.WriteHeader(http.StatusUnprocessableEntity)
			templates.Render(w, r, "profile", data)
			return
		}
		h.ErrLog.HandleServiceError(w, r, "change password", err, "/profile")
		return
	}
	h.AuditLog.PasswordChanged(r.Context(), r, uid)
	http.Redirect(w, r, "/profile?success=password", http.StatusSeeOther)
}
