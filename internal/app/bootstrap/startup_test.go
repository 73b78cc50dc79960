package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/tasks"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"github.com/gorilla/csrf"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "studyhub_test",
		SessionKey:      strings.Repeat("k", 40),
		MaxUploadMB:     10,
		ReminderWindow:  time.Hour,
		LoginRateLimit:  10,
		DisplayTimezone: "UTC",
		AuditLogAuth:    "all",
		AuditLogAdmin:   "db",
		AuditLogGroup:   "off",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", env: "dev", mutate: func(*AppConfig) {}},
		{name: "dev key allowed in dev", env: "dev", mutate: func(c *AppConfig) { c.SessionKey = devSessionKey }},
		{name: "dev key rejected in prod", env: "prod", mutate: func(c *AppConfig) { c.SessionKey = devSessionKey }, wantErr: "development default"},
		{name: "missing uri", env: "dev", mutate: func(c *AppConfig) { c.MongoURI = "" }, wantErr: "mongo_uri is required"},
		{name: "short session key", env: "dev", mutate: func(c *AppConfig) { c.SessionKey = "short" }, wantErr: "session_key must be at least"},
		{name: "short csrf key", env: "dev", mutate: func(c *AppConfig) { c.CSRFKey = "short" }, wantErr: "csrf_key"},
		{name: "zero upload limit", env: "dev", mutate: func(c *AppConfig) { c.MaxUploadMB = 0 }, wantErr: "max_upload_mb"},
		{name: "unknown audit mode", env: "dev", mutate: func(c *AppConfig) { c.AuditLogAdmin = "sometimes" }, wantErr: "audit_log_admin"},
		{name: "unknown timezone", env: "dev", mutate: func(c *AppConfig) { c.DisplayTimezone = "Mars/Olympus" }, wantErr: "display_timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateConfig() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidateConfig() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.MongoURI = ""
	cfg.SessionKey = "short"

	err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, testLogger())
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"mongo_uri", "session_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := AppConfig{MaxUploadMB: 3}
	if got, want := cfg.MaxUploadBytes(), int64(3*1024*1024); got != want {
		t.Errorf("MaxUploadBytes() = %d, want %d", got, want)
	}
}

func TestContactRecipient(t *testing.T) {
	tests := []struct {
		name string
		cfg  AppConfig
		want string
	}{
		{"explicit", AppConfig{ContactEmail: "help@x.com", AdminEmail: "admin@x.com", MailFrom: "noreply@x.com"}, "help@x.com"},
		{"admin fallback", AppConfig{AdminEmail: "admin@x.com", MailFrom: "noreply@x.com"}, "admin@x.com"},
		{"sender fallback", AppConfig{MailFrom: "noreply@x.com"}, "noreply@x.com"},
	}
	for _, tt := range tests {
		if got := tt.cfg.ContactRecipient(); got != tt.want {
			t.Errorf("%s: ContactRecipient() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBackgroundJobs(t *testing.T) {
	svc := &services{}

	cfg := validConfig()
	cfg.NotificationRetention = 24 * time.Hour
	jobs := backgroundJobs(cfg, svc, nil, testLogger())
	if len(jobs) != 1 || jobs[0].Name != "notification-prune" {
		t.Fatalf("out-of-process reminders: got %v, want only notification-prune", jobNames(jobs))
	}

	cfg.RemindersInProcess = true
	cfg.ReminderInterval = 30 * time.Second
	jobs = backgroundJobs(cfg, svc, nil, testLogger())
	if len(jobs) != 2 || jobs[0].Name != "reminder-dispatch" {
		t.Fatalf("in-process reminders: got %v", jobNames(jobs))
	}
	if jobs[0].Interval != 30*time.Second {
		t.Errorf("reminder interval = %v, want 30s", jobs[0].Interval)
	}

	cfg.RemindersInProcess = false
	cfg.NotificationRetention = 0
	if jobs := backgroundJobs(cfg, svc, nil, testLogger()); len(jobs) != 0 {
		t.Errorf("expected no jobs, got %v", jobNames(jobs))
	}
}

func jobNames(jobs []tasks.Job) []string {
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	return names
}

func TestCSRFProtect_IssuesTokenOnSafeRequests(t *testing.T) {
	var token string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = csrf.Token(r)
		w.WriteHeader(http.StatusOK)
	})

	h := csrfProtect(validConfig(), false)(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec.Code)
	}
	if token == "" {
		t.Error("expected a CSRF token in the request context")
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected the CSRF cookie to be set")
	}
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acct := accounts.New(accounts.Deps{DB: db, Runner: testutil.Runner(db), Log: testLogger()})

	if err := ensureAdmin(ctx, acct, "Admin@Example.com", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "admin@example.com"}).Decode(&user); err != nil {
		t.Fatalf("failed to find created admin: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("role = %q, want %q", user.Role, models.RoleAdmin)
	}
	if user.Status != models.StatusActive || !user.IsActive {
		t.Errorf("status = %q active=%v, want Active", user.Status, user.IsActive)
	}
	if user.PasswordHash == "" {
		t.Error("expected a password hash")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	existing := fx.CreatePendingStudent(ctx, "Existing User", "existing@example.com")

	acct := accounts.New(accounts.Deps{DB: db, Runner: testutil.Runner(db), Log: testLogger()})
	if err := ensureAdmin(ctx, acct, existing.Email, testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user); err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("role = %q, want %q", user.Role, models.RoleAdmin)
	}
	if user.Status != models.StatusActive || !user.IsActive {
		t.Errorf("status = %q active=%v, want Active", user.Status, user.IsActive)
	}
	if user.PasswordHash != existing.PasswordHash {
		t.Error("promotion must not change the password")
	}
	if n := fx.Count(ctx, "users", bson.M{}); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestEnsureAdmin_RejectsInvalidEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	acct := accounts.New(accounts.Deps{DB: db, Runner: testutil.Runner(db), Log: testLogger()})
	if err := ensureAdmin(ctx, acct, "not-an-email", testLogger()); err == nil {
		t.Fatal("expected an error for an invalid admin email")
	}
}
