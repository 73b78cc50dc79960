package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	Name     string
	Email    string
	Role     string
	Status   string
	IsActive bool
}

// AdminUser returns an active TestUser with admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Name:     "Test Admin",
		Email:    "admin@test.com",
		Role:     models.RoleAdmin,
		Status:   models.StatusActive,
		IsActive: true,
	}
}

// StudentUser returns an active TestUser with student role.
func StudentUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Name:     "Test Student",
		Email:    "student@test.com",
		Role:     models.RoleStudent,
		Status:   models.StatusActive,
		IsActive: true,
	}
}

// FromModel builds a TestUser matching a stored user.
func FromModel(u models.User) TestUser {
	return TestUser{
		ID:       u.ID.Hex(),
		Name:     u.FullName,
		Email:    u.Email,
		Role:     u.Role,
		Status:   u.Status,
		IsActive: u.IsActive,
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		Status:   user.Status,
		IsActive: user.IsActive,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
}

// NewFormRequest creates a url-encoded POST request with a user in context.
func NewFormRequest(target string, form url.Values, user TestUser) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return WithUser(req, user)
}
