// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for StudyHub.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They are app-level settings;
// WAFFLE's CoreConfig covers ports, TLS, logging, CORS and body limits.
//
// The struct is passed to every lifecycle hook, so anything needed during
// startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: studyhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRFKey signs CSRF tokens. Blank derives a key from SessionKey.
	CSRFKey string

	// Media uploads attached to group messages
	UploadDir   string
	MaxUploadMB int

	// Session reminders
	ReminderInterval      time.Duration // ticker period for in-process dispatch
	ReminderWindow        time.Duration // how far ahead a session counts as due
	RemindersInProcess    bool          // false leaves dispatch to cmd/remindctl
	NotificationRetention time.Duration // read notifications older than this are pruned
	DisplayTimezone       string        // zone used for reminder text and the session form default

	// Email (SendGrid); a blank key logs mail instead of sending it
	SendGridAPIKey string
	MailFrom       string // e.g., noreply@studyhub.example
	MailFromName   string // e.g., StudyHub
	ContactEmail   string // contact form recipient; see ContactRecipient

	// Base URL for links in outbound email
	BaseURL string // e.g., "https://studyhub.example" or "http://localhost:3000"

	// AdminEmail is promoted (or created) as an Active admin on startup.
	AdminEmail string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string
	AuditLogGroup string

	// LoginRateLimit is the number of login attempts allowed per minute
	// for one client IP and for one email address.
	LoginRateLimit int

	MetricsEnabled   bool
	ChatPollInterval time.Duration
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c AppConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ContactRecipient is where contact form messages go: ContactEmail, else
// AdminEmail, else MailFrom.
func (c AppConfig) ContactRecipient() string {
	switch {
	case c.ContactEmail != "":
		return c.ContactEmail
	case c.AdminEmail != "":
		return c.AdminEmail
	default:
		return c.MailFrom
	}
}
