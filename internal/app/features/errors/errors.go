// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/authz"
)

// pageData is the basic view model for error pages.
type pageData struct {
	Title      string
	IsLoggedIn bool
	Role       string
	UserName   string
	Message    string
	BackURL    string
}

// Handler is the errors feature handler.
// No DB needed; it just renders templates.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders the "access denied" page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "You don't have permission to view this page.", "/")
}

// Unauthorized renders the "sign in required" page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	RenderUnauthorized(w, r, "/login")
}

// NotFound renders the "not found" page for unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	RenderError(w, r, http.StatusNotFound, "Not found", "The page you requested does not exist.", "/")
}

func basePage(r *http.Request, title, msg, backURL string) pageData {
	role, name, _, signedIn := authz.UserCtx(r)
	return pageData{
		Title:      title,
		IsLoggedIn: signedIn,
		Role:       role,
		UserName:   name,
		Message:    msg,
		BackURL:    backURL,
	}
}
