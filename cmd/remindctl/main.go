// Command remindctl delivers due study-session reminders once and exits.
// Run it from cron or a systemd timer when reminders_in_process is off.
// It reads the same STUDYHUB_* configuration as the web server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dalemusser/studyhub/internal/app/bootstrap"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	os.Exit(run(logger))
}

func run(logger *zap.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coreCfg, appCfg, err := bootstrap.LoadConfig(logger)
	if err != nil {
		logger.Error("load config failed", zap.Error(err))
		return 1
	}
	if err := bootstrap.ValidateConfig(coreCfg, appCfg, logger); err != nil {
		logger.Error("invalid config", zap.Error(err))
		return 1
	}

	start := time.Now().UTC()
	res, err := bootstrap.DispatchReminders(ctx, appCfg, start, logger)
	if err != nil {
		logger.Error("reminder dispatch failed", zap.Error(err))
		return 1
	}

	logger.Info("reminder dispatch complete",
		zap.Int("sent", res.Sent),
		zap.Int("duplicate", res.Duplicate),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)))
	if res.Failed > 0 {
		return 2
	}
	return 0
}
