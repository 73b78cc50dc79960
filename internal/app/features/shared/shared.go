// Package shared holds small helpers used by several feature handlers.
package shared

import (
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor returns the request's actor, or renders the sign-in page and
// reports false.
func Actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	a, ok := authz.ActorFrom(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r, "/login")
	}
	return a, ok
}

// ActorJSON is Actor for JSON endpoints: it answers 401 with a JSON body.
func ActorJSON(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	a, ok := authz.ActorFrom(r)
	if !ok {
		uierrors.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
	}
	return a, ok
}

// IDParam parses the chi URL parameter name as an ObjectID. A malformed
// id is reported as not found.
func IDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(name)
	}
	return oid, nil
}

// FieldErrors splits a validation failure into per-field messages for a
// form. ok is false for any other kind of error.
func FieldErrors(err error) (fields map[string]string, ok bool) {
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		return nil, false
	}
	fields = make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		if _, seen := fields[f.Field]; !seen {
			fields[f.Field] = f.Message
		}
	}
	return fields, true
}

// WantsJSON reports whether the caller asked for JSON.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// SeeOther redirects with 303, or sends HX-Redirect for HTMX callers.
func SeeOther(w http.ResponseWriter, r *http.Request, dest string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}
