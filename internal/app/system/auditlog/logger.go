// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/store/audit"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
// Each field takes "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap
// only), or "off".
type Config struct {
	Auth  string // login, logout, registration, password
	Admin string // student moderation, privacy toggles, reports
	Group string // group lifecycle and membership
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
// A nil *Logger is valid and does nothing.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) setting(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAdmin:
		return l.config.Admin
	case audit.CategoryGroup:
		return l.config.Group
	}
	return "all"
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's setting.
// Storage failures are logged and never returned: auditing must not fail
// the operation it describes.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	setting := l.setting(event.Category)
	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func ptr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    ptr(userID),
		Success:   true,
		Details:   map[string]string{"email": email},
	}))
}

// LoginFailed logs a failed login. eventType is one of the
// audit.EventLoginFailed* constants; userID is zero when no account matched.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, userID primitive.ObjectID, email, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        ptr(userID),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	}))
}

// Logout logs a logout. userIDHex may be empty for an anonymous session.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDHex string) {
	uid, _ := primitive.ObjectIDFromHex(userIDHex)
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    ptr(uid),
		Success:   true,
	}))
}

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, role string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventRegistered,
		UserID:    ptr(userID),
		Success:   true,
		Details:   map[string]string{"email": email, "role": role},
	}))
}

// PasswordChanged logs a password change by the account owner.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		UserID:    ptr(userID),
		Success:   true,
	}))
}

// --- Admin events ---

// StudentModerated logs an admin changing a student's status or deleting
// the account. eventType is one of audit.EventStudent*.
func (l *Logger) StudentModerated(ctx context.Context, actorID, studentID primitive.ObjectID, eventType string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   ptr(actorID),
		UserID:    ptr(studentID),
		Success:   true,
		Details:   details,
	})
}

// PrivacyToggled logs a group switching between public and private.
func (l *Logger) PrivacyToggled(ctx context.Context, actorID, groupID primitive.ObjectID, private bool) {
	v := "public"
	if private {
		v = "private"
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventPrivacyToggled,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		Success:   true,
		Details:   map[string]string{"visibility": v},
	})
}

// Report logs a report being generated or deleted.
func (l *Logger) Report(ctx context.Context, actorID, reportID primitive.ObjectID, eventType, reportType string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   ptr(actorID),
		Success:   true,
		Details:   map[string]string{"report_id": reportID.Hex(), "type": reportType},
	})
}

// --- Group events ---

// GroupEvent logs a group lifecycle event (created, updated, deleted).
func (l *Logger) GroupEvent(ctx context.Context, eventType string, actorID, groupID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: eventType,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// MembershipEvent logs a membership change. details may be nil.
func (l *Logger) MembershipEvent(ctx context.Context, eventType string, actorID, groupID, userID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: eventType,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		UserID:    ptr(userID),
		Success:   true,
		Details:   details,
	})
}
