// internal/app/bootstrap/remind.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/app/services/reminders"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// DispatchReminders runs one reminder dispatch pass outside the web server.
// It connects to MongoDB, delivers whatever is due at now, and disconnects.
// Running it again is safe: reminders already delivered are not repeated.
func DispatchReminders(ctx context.Context, appCfg AppConfig, now time.Time, logger *zap.Logger) (reminders.Result, error) {
	client, err := Connect(ctx, appCfg, logger)
	if err != nil {
		return reminders.Result{}, err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logger.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeouts.Batch())
	defer cancel()

	d := newDispatcher(appCfg, client.Database(appCfg.MongoDatabase), newMailer(appCfg, logger), nil, logger)
	return d.Run(ctx, now)
}
