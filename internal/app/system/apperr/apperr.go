// Package apperr defines the error taxonomy shared by services and the
// HTTP boundary.
//
// Services return these errors (or wrap them with %w). Handlers never show
// err.Error() for anything that is not a *ValidationError or one of the
// sentinels below; use UserMessage and HTTPStatus instead.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Base kinds.
var (
	ErrConflict       = errors.New("conflict")
	ErrAuthentication = errors.New("invalid email or password")
	ErrAuthorization  = errors.New("not authorized")
	ErrNotFound       = errors.New("not found")
	ErrDeletion       = errors.New("deletion failed")
)

// Specific errors. Each wraps one base kind so callers can test either.
var (
	ErrAlreadyMember     = fmt.Errorf("%w: already a member of this group", ErrConflict)
	ErrOwnerCannotLeave  = fmt.Errorf("%w: the group owner cannot leave the group", ErrConflict)
	ErrInvalidCode       = fmt.Errorf("%w: invalid join code", ErrAuthorization)
	ErrNotOwner          = fmt.Errorf("%w: only the author may change this", ErrAuthorization)
	ErrNotMember         = fmt.Errorf("%w: you are not a member of this group", ErrAuthorization)
	ErrInactiveAccount   = fmt.Errorf("%w: your account is not active", ErrAuthorization)
	ErrInvalidDiscussion = fmt.Errorf("%w: discussion does not belong to this group", ErrNotFound)
)

// FieldError is one violated rule on one input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every violation found in one input. It is never
// returned partially filled: validators collect all problems first.
type ValidationError struct {
	Fields []FieldError
}

// Add records a violation.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Merge appends all violations from other.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	e.Fields = append(e.Fields, other.Fields...)
}

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// Err returns e as an error when it holds violations, nil otherwise.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// Messages returns the violation messages in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}

// First returns the first violation message, or "".
func (e *ValidationError) First() string {
	if !e.HasErrors() {
		return ""
	}
	return e.Fields[0].Message
}

// All joins every violation message with "; ".
func (e *ValidationError) All() string {
	if !e.HasErrors() {
		return ""
	}
	return strings.Join(e.Messages(), "; ")
}

// ForField returns the first message recorded for field, or "".
func (e *ValidationError) ForField(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Validation builds a single-field ValidationError.
func Validation(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Conflict returns an error wrapping ErrConflict with a user-facing detail.
func Conflict(detail string) error {
	return fmt.Errorf("%w: %s", ErrConflict, detail)
}

// NotFound returns an error wrapping ErrNotFound naming the missing thing.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Forbidden returns an error wrapping ErrAuthorization with a detail.
func Forbidden(detail string) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, detail)
}

// Deletion wraps cause as a deletion failure. The cause is kept for
// logging; UserMessage never reveals it.
func Deletion(cause error) error {
	return &deletionError{cause: cause}
}

type deletionError struct{ cause error }

func (e *deletionError) Error() string { return "deletion failed: " + e.cause.Error() }
func (e *deletionError) Unwrap() []error {
	return []error{ErrDeletion, e.cause}
}

// IsExpected reports whether err belongs to the taxonomy of user-correctable
// outcomes (as opposed to an internal failure that must be logged).
func IsExpected(err error) bool {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return true
	case errors.Is(err, ErrDeletion):
		return false
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrAuthorization),
		errors.Is(err, ErrNotFound):
		return true
	}
	return false
}

// HTTPStatus maps an error to the status code used at the HTTP boundary.
func HTTPStatus(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDeletion):
		return http.StatusInternalServerError
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// GenericFailure is shown for any error outside the taxonomy.
const GenericFailure = "A server error occurred. Please try again."

// UserMessage returns text safe to show to the end user.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return strings.Join(ve.Messages(), " ")
	case errors.Is(err, ErrDeletion):
		return "The item could not be deleted. No changes were made."
	case errors.Is(err, ErrAuthentication):
		return "Invalid email or password."
	case IsExpected(err):
		return detail(err)
	}
	return GenericFailure
}

// detail returns the text after the base kind prefix of a wrapped error
// ("leave: conflict: the group owner..." -> "The group owner...").
func detail(err error) string {
	msg := err.Error()
	for _, kind := range []error{ErrConflict, ErrAuthorization, ErrNotFound} {
		prefix := kind.Error() + ": "
		if i := strings.LastIndex(msg, prefix); i >= 0 {
			msg = msg[i+len(prefix):]
			break
		}
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return GenericFailure
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
