// internal/app/bootstrap/services.go
package bootstrap

import (
	"fmt"
	"sync"

	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	"github.com/dalemusser/studyhub/internal/app/services/cascade"
	"github.com/dalemusser/studyhub/internal/app/services/content"
	"github.com/dalemusser/studyhub/internal/app/services/groupreg"
	"github.com/dalemusser/studyhub/internal/app/services/ledger"
	"github.com/dalemusser/studyhub/internal/app/services/reminders"
	reportsvc "github.com/dalemusser/studyhub/internal/app/services/reports"
	"github.com/dalemusser/studyhub/internal/app/services/schedule"
	"github.com/dalemusser/studyhub/internal/app/store/audit"
	notificationstore "github.com/dalemusser/studyhub/internal/app/store/notifications"
	"github.com/dalemusser/studyhub/internal/app/system/auditlog"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/studyhub/internal/app/system/realtime"
	"github.com/dalemusser/studyhub/internal/app/system/tasks"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/timezones"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"github.com/dalemusser/studyhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const siteName = "StudyHub"

// services is the application's service graph. One instance is shared by
// every HTTP handler and background job.
type services struct {
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
	Audit   *auditlog.Logger
	Files   *filestore.Store
	Limiter *ratelimit.LoginLimiter
	Mail    mailer.Mailer

	Accounts  *accounts.Service
	Registry  *groupreg.Service
	Ledger    *ledger.Service
	Content   *content.Service
	Schedule  *schedule.Service
	Reports   *reportsvc.Service
	Reminders *reminders.Dispatcher
}

// runtimeState is what Startup builds and Shutdown tears down.
type runtimeState struct {
	mu        sync.Mutex
	svc       *services
	scheduler *workers.Scheduler
}

// graph returns the shared service graph, building it on first use.
func (rt *runtimeState) graph(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.svc != nil {
		return rt.svc, nil
	}
	svc, err := newServices(appCfg, deps.StudyHubMongoClient, deps.StudyHubMongoDatabase, logger)
	if err != nil {
		return nil, err
	}
	rt.svc = svc
	return svc, nil
}

// newServices wires stores, services and shared infrastructure.
func newServices(appCfg AppConfig, client *mongo.Client, db *mongo.Database, logger *zap.Logger) (*services, error) {
	files, err := filestore.NewOS(appCfg.UploadDir, appCfg.MaxUploadBytes())
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	hub := realtime.NewHub(logger)
	m := metrics.New()
	runner := txn.New(client, logger)
	al := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
		Group: appCfg.AuditLogGroup,
	})
	cas := cascade.New(db, files, logger)
	mail := newMailer(appCfg, logger)

	return &services{
		Hub:     hub,
		Metrics: m,
		Audit:   al,
		Files:   files,
		Limiter: ratelimit.NewLoginLimiter(appCfg.LoginRateLimit),
		Mail:    mail,

		Accounts: accounts.New(accounts.Deps{
			DB: db, Runner: runner, Cascade: cas, Audit: al, Rooms: hub, Log: logger,
		}),
		Registry: groupreg.New(groupreg.Deps{
			DB: db, Runner: runner, Cascade: cas, Audit: al, Metrics: m, Rooms: hub, Log: logger,
		}),
		Ledger: ledger.New(ledger.Deps{
			DB: db, Runner: runner, Cascade: cas, Audit: al, Metrics: m, Rooms: hub, Log: logger,
		}),
		Content: content.New(content.Deps{
			DB: db, Runner: runner, Files: files, Metrics: m, Publisher: hub, Log: logger,
		}),
		Schedule:  schedule.New(schedule.Deps{DB: db, Runner: runner, Log: logger}),
		Reports:   reportsvc.New(reportsvc.Deps{DB: db, Audit: al, Log: logger}),
		Reminders: newDispatcher(appCfg, db, mail, m, logger),
	}, nil
}

func newMailer(appCfg AppConfig, logger *zap.Logger) mailer.Mailer {
	return mailer.New(mailer.Config{
		SendGridAPIKey: appCfg.SendGridAPIKey,
		From:           appCfg.MailFrom,
		FromName:       appCfg.MailFromName,
	}, logger)
}

// newDispatcher builds the reminder dispatcher used by both the in-process
// worker and remindctl.
func newDispatcher(appCfg AppConfig, db *mongo.Database, mail mailer.Mailer, m *metrics.Metrics, logger *zap.Logger) *reminders.Dispatcher {
	loc, err := timezones.Location(appCfg.DisplayTimezone)
	if err != nil {
		logger.Warn("unknown display timezone, using UTC",
			zap.String("zone", appCfg.DisplayTimezone), zap.Error(err))
		loc = nil
	}
	return reminders.New(reminders.Deps{
		DB:       db,
		Mailer:   mail,
		Metrics:  m,
		Log:      logger,
		Window:   appCfg.ReminderWindow,
		Location: loc,
		SiteName: siteName,
	})
}

// backgroundJobs lists the periodic jobs the web server runs itself.
// Reminder dispatch is included only when it is not left to remindctl.
func backgroundJobs(appCfg AppConfig, svc *services, pruner tasks.NotificationPruner, logger *zap.Logger) []tasks.Job {
	var jobs []tasks.Job
	if appCfg.RemindersInProcess {
		jobs = append(jobs, tasks.ReminderDispatchJob(svc.Reminders, logger, appCfg.ReminderInterval))
	}
	if appCfg.NotificationRetention > 0 {
		jobs = append(jobs, tasks.NotificationPruneJob(pruner, logger, appCfg.NotificationRetention))
	}
	return jobs
}

// startWorkers launches the background scheduler when there is work for it.
func (rt *runtimeState) startWorkers(appCfg AppConfig, db *mongo.Database, logger *zap.Logger) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.svc == nil || rt.scheduler != nil {
		return
	}
	jobs := backgroundJobs(appCfg, rt.svc, notificationstore.New(db), logger)
	if len(jobs) == 0 {
		return
	}
	rt.scheduler = workers.NewScheduler(logger, timeouts.Batch(), jobs...)
	rt.scheduler.Start()
	logger.Info("background workers started", zap.Int("jobs", len(jobs)))
}

// stop halts workers, closes websocket rooms and stops the rate limiter.
func (rt *runtimeState) stop(logger *zap.Logger) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.scheduler != nil {
		logger.Info("stopping background workers")
		rt.scheduler.Stop()
		rt.scheduler = nil
	}
	if rt.svc != nil {
		rt.svc.Hub.Close()
		rt.svc.Limiter.Stop()
	}
}
