// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"errors"
	"net/http"

	aboutfeature "github.com/dalemusser/studyhub/internal/app/features/about"
	auditlogfeature "github.com/dalemusser/studyhub/internal/app/features/auditlog"
	chatfeature "github.com/dalemusser/studyhub/internal/app/features/chat"
	contactfeature "github.com/dalemusser/studyhub/internal/app/features/contact"
	dashboardfeature "github.com/dalemusser/studyhub/internal/app/features/dashboard"
	discussionsfeature "github.com/dalemusser/studyhub/internal/app/features/discussions"
	errorsfeature "github.com/dalemusser/studyhub/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/studyhub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/studyhub/internal/app/features/health"
	homefeature "github.com/dalemusser/studyhub/internal/app/features/home"
	loginfeature "github.com/dalemusser/studyhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/studyhub/internal/app/features/logout"
	notificationsfeature "github.com/dalemusser/studyhub/internal/app/features/notifications"
	profilefeature "github.com/dalemusser/studyhub/internal/app/features/profile"
	registerfeature "github.com/dalemusser/studyhub/internal/app/features/register"
	reportsfeature "github.com/dalemusser/studyhub/internal/app/features/reports"
	schedulefeature "github.com/dalemusser/studyhub/internal/app/features/schedule"
	studentsfeature "github.com/dalemusser/studyhub/internal/app/features/students"
	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// csrfFieldName matches the hidden input rendered by the csrf_field template.
const csrfFieldName = "gorilla.csrf.Token"

// BuildHandler constructs the root HTTP handler (router) for StudyHub.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It initializes the template engine, applies the
// session, CSRF and metrics middleware, and mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.rt == nil {
		return nil, errors.New("bootstrap: DBDeps was not created by ConnectDB")
	}
	svc, err := deps.rt.graph(appCfg, deps, logger)
	if err != nil {
		return nil, err
	}
	db := deps.StudyHubMongoDatabase

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads role and status on every request so bans
	// and approvals take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	if appCfg.MetricsEnabled {
		r.Use(svc.Metrics.Middleware)
	}
	r.Use(csrfProtect(appCfg, secure))

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errorsHandler.NotFound)

	// Operational endpoints
	healthHandler := healthfeature.NewHandler(deps.StudyHubMongoClient, svc.Hub, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	if appCfg.MetricsEnabled {
		r.Handle("/metrics", svc.Metrics.Handler())
	}

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public pages
	homeHandler := homefeature.NewHandler(db, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	aboutHandler := aboutfeature.NewHandler(logger)
	r.Mount("/about", aboutfeature.Routes(aboutHandler))

	contactHandler := contactfeature.NewHandler(svc.Mail, appCfg.ContactRecipient(), errLog, logger)
	r.Mount("/contact", contactfeature.Routes(contactHandler))

	// Accounts
	loginHandler := loginfeature.NewHandler(svc.Accounts, sessionMgr, svc.Limiter, svc.Audit, svc.Metrics, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	registerHandler := registerfeature.NewHandler(svc.Accounts, svc.Audit, errLog, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.Audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	profileHandler := profilefeature.NewHandler(db, svc.Accounts, svc.Audit, errLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Error pages
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Dashboards
	dashboardHandler := dashboardfeature.NewHandler(db, svc.Schedule, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))
	r.Mount("/admin", dashboardfeature.AdminRoutes(dashboardHandler, sessionMgr))

	// Groups and their content
	groupsHandler := groupsfeature.NewHandler(groupsfeature.Deps{
		DB:           db,
		Registry:     svc.Registry,
		Ledger:       svc.Ledger,
		Content:      svc.Content,
		Schedule:     svc.Schedule,
		ErrLog:       errLog,
		Log:          logger,
		PollInterval: appCfg.ChatPollInterval,
	})
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))
	r.Mount("/admin/groups", groupsfeature.AdminRoutes(groupsHandler, sessionMgr))

	chatHandler := chatfeature.NewHandler(db, svc.Content, svc.Hub, appCfg.MaxUploadBytes(), errLog, logger)
	chatfeature.Mount(r, chatHandler, sessionMgr)

	discussionsHandler := discussionsfeature.NewHandler(db, svc.Content, svc.Registry, errLog, logger)
	r.Mount("/groups/{id}/discussions", discussionsfeature.Routes(discussionsHandler, sessionMgr))

	scheduleHandler := schedulefeature.NewHandler(svc.Schedule, svc.Registry, appCfg.DisplayTimezone, errLog, logger)
	r.Mount("/groups/{id}/sessions", schedulefeature.GroupRoutes(scheduleHandler, sessionMgr))
	r.Mount("/sessions", schedulefeature.Routes(scheduleHandler, sessionMgr))

	notificationsHandler := notificationsfeature.NewHandler(db, errLog, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr))

	// Administration
	studentsHandler := studentsfeature.NewHandler(db, svc.Accounts, errLog, logger)
	r.Mount("/students", studentsfeature.Routes(studentsHandler, sessionMgr))

	reportsHandler := reportsfeature.NewHandler(svc.Reports, errLog, logger)
	r.Mount("/reports", reportsfeature.Routes(reportsHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}

// csrfProtect returns the gorilla/csrf middleware. Requests are treated as
// plaintext HTTP outside prod so the Referer check does not reject local
// development over http://.
func csrfProtect(appCfg AppConfig, secure bool) func(http.Handler) http.Handler {
	seed := appCfg.CSRFKey
	if seed == "" {
		seed = "csrf:" + appCfg.SessionKey
	}
	key := sha256.Sum256([]byte(seed))

	protect := csrf.Protect(key[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.FieldName(csrfFieldName),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errorsfeature.RenderForbidden(w, r, "Your form expired. Reload the page and try again.", "/")
		})),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
