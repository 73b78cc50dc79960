// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devSessionKey is the development default. ValidateConfig refuses it in prod.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for StudyHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STUDYHUB_MONGO_URI, STUDYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "studyhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (at least 32 bytes; must be changed in production)"},
	{Name: "session_name", Default: "studyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},
	{Name: "csrf_key", Default: "", Desc: "CSRF token key (blank derives one from session_key)"},

	// Media uploads
	{Name: "upload_dir", Default: "./uploads", Desc: "Directory for message attachments"},
	{Name: "max_upload_mb", Default: 10, Desc: "Largest accepted attachment in megabytes"},

	// Reminders and notifications
	{Name: "reminder_interval", Default: "1m", Desc: "How often the in-process dispatcher looks for due reminders"},
	{Name: "reminder_window", Default: "1h", Desc: "A reminder is due when its session starts within this window"},
	{Name: "reminders_in_process", Default: false, Desc: "Dispatch reminders from the web server (otherwise run remindctl)"},
	{Name: "notification_retention", Default: "720h", Desc: "Read notifications older than this are pruned"},
	{Name: "display_timezone", Default: "UTC", Desc: "IANA zone for reminder text and the session form default"},

	// Email (SendGrid)
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key (blank logs email instead of sending)"},
	{Name: "mail_from", Default: "noreply@studyhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "StudyHub", Desc: "From display name"},
	{Name: "contact_email", Default: "", Desc: "Recipient of contact form messages (blank uses admin_email, then mail_from)"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},

	// Bootstrap admin
	{Name: "admin_email", Default: "", Desc: "Email of the admin account ensured on startup"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_group", Default: "db", Desc: "Group event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per minute per IP and per email"},
	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},
	{Name: "chat_poll_interval", Default: "5s", Desc: "How often group chat pages poll for new messages"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STUDYHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),
		CSRFKey:          appValues.String("csrf_key"),

		UploadDir:   appValues.String("upload_dir"),
		MaxUploadMB: appValues.Int("max_upload_mb"),

		ReminderInterval:      appValues.Duration("reminder_interval", time.Minute),
		ReminderWindow:        appValues.Duration("reminder_window", time.Hour),
		RemindersInProcess:    appValues.Bool("reminders_in_process"),
		NotificationRetention: appValues.Duration("notification_retention", 30*24*time.Hour),
		DisplayTimezone:       appValues.String("display_timezone"),

		SendGridAPIKey: appValues.String("sendgrid_api_key"),
		MailFrom:       appValues.String("mail_from"),
		MailFromName:   appValues.String("mail_from_name"),
		ContactEmail:   appValues.String("contact_email"),

		BaseURL:    appValues.String("base_url"),
		AdminEmail: appValues.String("admin_email"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
		AuditLogGroup: appValues.String("audit_log_group"),

		LoginRateLimit:   appValues.Int("login_rate_limit"),
		MetricsEnabled:   appValues.Bool("metrics_enabled"),
		ChatPollInterval: appValues.Duration("chat_poll_interval", 5*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// It rejects a malformed MongoDB URI, a short session key, and the
// development session key in production. Every problem is reported at once.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if appCfg.MongoURI == "" {
		errs = append(errs, errors.New("mongo_uri is required"))
	} else if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if appCfg.MongoDatabase == "" {
		errs = append(errs, errors.New("mongo_database is required"))
	}

	if len(appCfg.SessionKey) < minSessionKeyLen {
		errs = append(errs, fmt.Errorf("session_key must be at least %d bytes", minSessionKeyLen))
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		errs = append(errs, errors.New("session_key must be changed from the development default in prod"))
	}
	if appCfg.CSRFKey != "" && len(appCfg.CSRFKey) < minSessionKeyLen {
		errs = append(errs, fmt.Errorf("csrf_key must be at least %d bytes when set", minSessionKeyLen))
	}

	if appCfg.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("max_upload_mb must be positive"))
	}
	if appCfg.ReminderWindow <= 0 {
		errs = append(errs, errors.New("reminder_window must be positive"))
	}
	if appCfg.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("login_rate_limit must be positive"))
	}
	if appCfg.DisplayTimezone != "" && appCfg.DisplayTimezone != "UTC" {
		if _, err := timezones.Location(appCfg.DisplayTimezone); err != nil {
			errs = append(errs, fmt.Errorf("display_timezone: %w", err))
		}
	}

	for _, cat := range []struct{ key, val string }{
		{"audit_log_auth", appCfg.AuditLogAuth},
		{"audit_log_admin", appCfg.AuditLogAdmin},
		{"audit_log_group", appCfg.AuditLogGroup},
	} {
		switch cat.val {
		case "all", "db", "log", "off":
		default:
			errs = append(errs, fmt.Errorf("%s must be one of all, db, log, off (got %q)", cat.key, cat.val))
		}
	}

	return errors.Join(errs...)
}
