// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// ReminderDispatcher sends every reminder that has come due by now.
type ReminderDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) (sent, skipped int, err error)
}

// NotificationPruner removes read notifications older than a cutoff.
type NotificationPruner interface {
	PruneRead(ctx context.Context, olderThan time.Time) (int64, error)
}

// ReminderDispatchJob creates a job that delivers due session reminders.
// Delivery is idempotent, so overlapping runs (two app instances, or the
// CLI alongside the server) do not double-send.
func ReminderDispatchJob(d ReminderDispatcher, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = time.Minute
	}
	return Job{
		Name:     "reminder-dispatch",
		Interval: interval,
		Run: func(ctx context.Context) error {
			sent, skipped, err := d.DispatchDue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if sent > 0 || skipped > 0 {
				logger.Info("dispatched reminders",
					zap.Int("sent", sent),
					zap.Int("skipped", skipped))
			}
			return nil
		},
	}
}

// NotificationPruneJob creates a job that deletes read notifications
// older than retention.
func NotificationPruneJob(p NotificationPruner, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "notification-prune",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := p.PruneRead(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("pruned read notifications", zap.Int64("count", count))
			}
			return nil
		},
	}
}
