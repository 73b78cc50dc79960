// Package timeouts provides centralized timeout values for handler,
// service, and job operations.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks
//   - Short: single-document reads, login, join/leave
//   - Medium: list queries, posting content, polling
//   - Long: transactions touching several collections (group cascade)
//   - Batch: reminder dispatch passes and report generation
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

// Config holds timeout configuration values.
// Zero values are ignored (current values are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

var defaults = Config{
	Ping:   DefaultPing,
	Short:  DefaultShort,
	Medium: DefaultMedium,
	Long:   DefaultLong,
	Batch:  DefaultBatch,
}

var (
	mu  sync.RWMutex
	cur = defaults
)

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

// Ping returns the timeout for connectivity checks.
func Ping() time.Duration { return get(func(c Config) time.Duration { return c.Ping }) }

// Short returns the timeout for single-document operations.
func Short() time.Duration { return get(func(c Config) time.Duration { return c.Short }) }

// Medium returns the timeout for list queries and simple writes.
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }

// Long returns the timeout for multi-collection transactions.
func Long() time.Duration { return get(func(c Config) time.Duration { return c.Long }) }

// Batch returns the timeout for background passes and reports.
func Batch() time.Duration { return get(func(c Config) time.Duration { return c.Batch }) }

// Configure overrides the non-zero values in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&cur, cfg)
}

func merge(dst *Config, src Config) {
	for _, p := range []struct {
		to   *time.Duration
		from time.Duration
	}{
		{&dst.Ping, src.Ping},
		{&dst.Short, src.Short},
		{&dst.Medium, src.Medium},
		{&dst.Long, src.Long},
		{&dst.Batch, src.Batch},
	} {
		if p.from > 0 {
			*p.to = p.from
		}
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults
}

// ConfigureFromEnv reads STUDYHUB_TIMEOUT_{PING,SHORT,MEDIUM,LONG,BATCH}
// (Go duration strings). Invalid or non-positive values are ignored.
// It returns how many values were applied.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for _, e := range []struct {
		key string
		to  *time.Duration
	}{
		{"STUDYHUB_TIMEOUT_PING", &cfg.Ping},
		{"STUDYHUB_TIMEOUT_SHORT", &cfg.Short},
		{"STUDYHUB_TIMEOUT_MEDIUM", &cfg.Medium},
		{"STUDYHUB_TIMEOUT_LONG", &cfg.Long},
		{"STUDYHUB_TIMEOUT_BATCH", &cfg.Batch},
	} {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*e.to = d
			n++
		}
	}
	Configure(cfg)
	return n
}

// Current returns the timeout configuration in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// WithTimeout wraps context.WithTimeout and logs a warning from the
// returned cancel func when the deadline was hit.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), log, "reminder dispatch")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
