// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/studyhub/internal/app/resources"
	"github.com/dalemusser/studyhub/internal/app/services/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It loads
// shared templates and the timezone catalog, builds the service graph,
// ensures the bootstrap admin, and starts background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("overrides", n))
	}

	resources.LoadSharedTemplates()

	if err := timezones.Load(); err != nil {
		logger.Error("timezone catalog failed to load", zap.Error(err))
		return err
	}

	if deps.rt == nil {
		return errors.New("bootstrap: DBDeps was not created by ConnectDB")
	}
	svc, err := deps.rt.graph(appCfg, deps, logger)
	if err != nil {
		logger.Error("service wiring failed", zap.Error(err))
		return err
	}

	if appCfg.AdminEmail != "" {
		actx, cancel := context.WithTimeout(ctx, timeouts.Short())
		err := ensureAdmin(actx, svc.Accounts, appCfg.AdminEmail, logger)
		cancel()
		if err != nil {
			return err
		}
	}

	deps.rt.startWorkers(appCfg, deps.StudyHubMongoDatabase, logger)
	return nil
}

// ensureAdmin promotes or creates the configured admin account. A newly
// generated password is logged exactly once.
func ensureAdmin(ctx context.Context, acct *accounts.Service, email string, logger *zap.Logger) error {
	created, password, err := acct.EnsureAdmin(ctx, email, "")
	if err != nil {
		logger.Error("ensure admin failed", zap.String("email", email), zap.Error(err))
		return err
	}
	if created {
		logger.Warn("created admin account; change this password after first sign-in",
			zap.String("email", email),
			zap.String("password", password))
		return nil
	}
	logger.Info("admin account present", zap.String("email", email))
	return nil
}
