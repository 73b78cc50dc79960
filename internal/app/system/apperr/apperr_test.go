package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
)

func TestSpecificErrorsWrapKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"already member", apperr.ErrAlreadyMember, apperr.ErrConflict},
		{"owner cannot leave", apperr.ErrOwnerCannotLeave, apperr.ErrConflict},
		{"invalid code", apperr.ErrInvalidCode, apperr.ErrAuthorization},
		{"not owner", apperr.ErrNotOwner, apperr.ErrAuthorization},
		{"inactive", apperr.ErrInactiveAccount, apperr.ErrAuthorization},
		{"invalid discussion", apperr.ErrInvalidDiscussion, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			wrapped := fmt.Errorf("leave: %w", tt.err)
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("wrapped error lost identity")
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", apperr.Validation("name", "Name is required."), http.StatusUnprocessableEntity},
		{"conflict", apperr.Conflict("group name is taken"), http.StatusConflict},
		{"already member", apperr.ErrAlreadyMember, http.StatusConflict},
		{"authentication", apperr.ErrAuthentication, http.StatusUnauthorized},
		{"invalid code", apperr.ErrInvalidCode, http.StatusForbidden},
		{"not found", apperr.NotFound("group"), http.StatusNotFound},
		{"deletion", apperr.Deletion(errors.New("write conflict")), http.StatusInternalServerError},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserMessage_NeverLeaksInternalText(t *testing.T) {
	raw := errors.New("E11000 duplicate key error collection: studyhub.groups")
	if got := apperr.UserMessage(raw); got != apperr.GenericFailure {
		t.Errorf("UserMessage(raw) = %q, want generic failure", got)
	}

	del := apperr.Deletion(raw)
	if got := apperr.UserMessage(del); got == "" || got == del.Error() {
		t.Errorf("UserMessage(deletion) leaked cause: %q", got)
	}
	if !errors.Is(del, raw) {
		t.Error("deletion error should keep its cause for logging")
	}
	if !errors.Is(del, apperr.ErrDeletion) {
		t.Error("deletion error should match ErrDeletion")
	}
}

func TestUserMessage_Taxonomy(t *testing.T) {
	if got := apperr.UserMessage(apperr.ErrAlreadyMember); got != "Already a member of this group." {
		t.Errorf("UserMessage(ErrAlreadyMember) = %q", got)
	}
	if got := apperr.UserMessage(apperr.ErrAuthentication); got != "Invalid email or password." {
		t.Errorf("UserMessage(ErrAuthentication) = %q", got)
	}
}

func TestValidationError_CollectsAll(t *testing.T) {
	ve := &apperr.ValidationError{}
	if ve.Err() != nil {
		t.Fatal("empty ValidationError should produce nil error")
	}
	ve.Add("name", "Name is required.")
	ve.Add("description", "Description must be at least 20 characters.")

	err := ve.Err()
	var got *apperr.ValidationError
	if !errors.As(err, &got) {
		t.Fatal("expected *ValidationError")
	}
	if len(got.Fields) != 2 {
		t.Errorf("expected 2 violations, got %d", len(got.Fields))
	}
	if got.ForField("description") == "" {
		t.Error("ForField(description) should not be empty")
	}
	if !apperr.IsExpected(err) {
		t.Error("validation errors are expected errors")
	}
}

func TestUserMessage_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("leave group: %w", apperr.ErrOwnerCannotLeave)
	want := "The group owner cannot leave the group."
	if got := apperr.UserMessage(err); got != want {
		t.Errorf("UserMessage() = %q, want %q", got, want)
	}
	if got := apperr.UserMessage(apperr.ErrNotFound); got != "Not found." {
		t.Errorf("UserMessage(ErrNotFound) = %q", got)
	}
}
