// internal/app/features/errors/render.go
package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/templates"
)

// RenderUnauthorized shows the "sign in required" page with a 401.
// If backURL is empty, it will default to /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	RenderError(w, r, http.StatusUnauthorized, "Sign in required", "Please sign in to continue.", backURL)
}

// RenderForbidden shows an access error page with a message and a 403.
// If backURL is empty, it resolves a safe back URL with a default fallback.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	RenderError(w, r, http.StatusForbidden, "Access denied", msg, backURL)
}

// RenderError writes status and renders the shared error page.
func RenderError(w http.ResponseWriter, r *http.Request, status int, title, msg, backURL string) {
	if backURL == "" {
		backURL = httpnav.ResolveBackURL(r, "/")
	}
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", basePage(r, title, msg, backURL))
}
