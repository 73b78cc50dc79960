// internal/app/features/errors/errorlog.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures with request context and renders the
// matching user-facing response. Internal error text never reaches the
// client.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fs := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if u, ok := auth.CurrentUser(r); ok {
		fs = append(fs, zap.String("user_id", u.ID))
	}
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	return fs
}

// LogServerError logs at error level and renders a 500 page with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Error(msg, e.fields(r, err)...)
	RenderError(w, r, http.StatusInternalServerError, "Something went wrong", userMsg, backURL)
}

// LogBadRequest logs at warn level and renders a 400 page with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Warn(msg, e.fields(r, err)...)
	RenderError(w, r, http.StatusBadRequest, "Bad request", userMsg, backURL)
}

// LogForbidden logs at info level and renders a 403 page with userMsg.
func (e *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg, backURL string) {
	e.log.Info(msg, e.fields(r, err)...)
	RenderForbidden(w, r, userMsg, backURL)
}

// HTMXLogServerError is LogServerError for HTMX fragments: plain text body.
func (e *ErrorLogger) HTMXLogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Error(msg, e.fields(r, err)...)
	http.Error(w, userMsg, http.StatusInternalServerError)
}

// HTMXLogBadRequest is LogBadRequest for HTMX fragments.
func (e *ErrorLogger) HTMXLogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Warn(msg, e.fields(r, err)...)
	http.Error(w, userMsg, http.StatusBadRequest)
}

// HandleServiceError renders a service-layer error. Expected kinds
// (validation, conflict, not found, authorization) get their own status and
// message; anything else is logged in full and shown as a generic failure.
func (e *ErrorLogger) HandleServiceError(w http.ResponseWriter, r *http.Request, op string, err error, backURL string) {
	status := apperr.HTTPStatus(err)
	if apperr.IsExpected(err) {
		e.log.Info(op+" rejected", e.fields(r, err)...)
	} else {
		e.log.Error(op+" failed", e.fields(r, err)...)
	}
	RenderError(w, r, status, http.StatusText(status), apperr.UserMessage(err), backURL)
}

// JSONError writes {"error": "..."} for a service-layer error, following
// the same logging rules as HandleServiceError.
func (e *ErrorLogger) JSONError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := apperr.HTTPStatus(err)
	if apperr.IsExpected(err) {
		e.log.Info(op+" rejected", e.fields(r, err)...)
	} else {
		e.log.Error(op+" failed", e.fields(r, err)...)
	}
	WriteJSON(w, status, map[string]string{"error": apperr.UserMessage(err)})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
