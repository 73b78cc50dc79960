// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the verified principal a service call runs as. It is built from
// the request-scoped session user (never from client-supplied fields).
type Actor struct {
	ID       primitive.ObjectID
	Name     string
	Role     string // admin | student
	CanWrite bool   // Active status and is_active flag
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == "admin" }

// ActorFor builds an Actor from a stored user, for callers outside HTTP
// (CLI tools, tests).
func ActorFor(u models.User) Actor {
	return Actor{ID: u.ID, Name: u.FullName, Role: u.Role, CanWrite: u.CanWrite()}
}

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session: fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// ActorFrom builds the Actor for the current request.
func ActorFrom(r *http.Request) (Actor, bool) {
	role, name, uid, ok := UserCtx(r)
	if !ok {
		return Actor{}, false
	}
	u, _ := auth.CurrentUser(r)
	return Actor{ID: uid, Name: name, Role: role, CanWrite: u.CanWrite()}, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "admin"
}

// IsStudent reports whether the current request's user is a student.
func IsStudent(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == "student"
}

// CanWrite reports whether the current request's user may perform writes.
func CanWrite(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.CanWrite()
}

// HasAnyRole reports whether the current request's user has any of the given roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}
