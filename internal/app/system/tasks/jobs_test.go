package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) DispatchDue(ctx context.Context, now time.Time) (int, int, error) {
	f.calls++
	return 2, 1, f.err
}

type fakePruner struct{ cutoff time.Time }

func (f *fakePruner) PruneRead(ctx context.Context, olderThan time.Time) (int64, error) {
	f.cutoff = olderThan
	return 4, nil
}

func TestReminderDispatchJob(t *testing.T) {
	d := &fakeDispatcher{}
	job := ReminderDispatchJob(d, zap.NewNop(), 0)
	if job.Interval != time.Minute {
		t.Errorf("default interval = %v, want 1m", job.Interval)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.calls != 1 {
		t.Errorf("calls = %d, want 1", d.calls)
	}

	d.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Error("expected dispatcher error to propagate")
	}
}

func TestNotificationPruneJob(t *testing.T) {
	p := &fakePruner{}
	job := NotificationPruneJob(p, zap.NewNop(), 24*time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	age := time.Since(p.cutoff)
	if age < 23*time.Hour || age > 25*time.Hour {
		t.Errorf("cutoff age = %v, want about 24h", age)
	}
}
