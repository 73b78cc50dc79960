// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Scheduler runs each registered job on its own ticker until stopped.
type Scheduler struct {
	jobs    []tasks.Job
	log     *zap.Logger
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewScheduler creates a scheduler for the given jobs. timeout bounds each
// individual run; zero means 30 seconds.
func NewScheduler(logger *zap.Logger, timeout time.Duration, jobs ...tasks.Job) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		jobs:    jobs,
		log:     logger,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Run == nil {
			s.log.Warn("skipping job with no interval or run func", zap.String("job", j.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(j)
		s.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop signals every job loop to exit and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.log.Info("background jobs stopped")
}

// RunOnce runs every job a single time, in order, and returns the first error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	for _, j := range s.jobs {
		if j.Run == nil {
			continue
		}
		if err := s.runJob(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) loop(j tasks.Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			_ = s.runJob(context.Background(), j)
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, j tasks.Job) error {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		s.log.Error("background job failed", zap.String("job", j.Name), zap.Error(err))
		return err
	}
	return nil
}
