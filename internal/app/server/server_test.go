package server

import (
	"context"
	"strings"
	"testing"

	"hrdesk/internal/platform/config"
	"hrdesk/internal/platform/jobs"
)

// A bad cron spec must fail Run before any background goroutine starts.
// Hub is nil here, so reaching the errgroup would panic.
func TestRunRejectsBadScheduleBeforeStarting(t *testing.T) {
	scheduler := jobs.New(nil, nil, nil)
	noop := func(context.Context, string) (any, error) { return nil, nil }
	scheduler.Register(jobs.JobAbsenceSweep, noop)
	scheduler.Register(jobs.JobSessionCleanup, noop)

	app := &App{
		Config: config.Config{
			Addr:                   "127.0.0.1:0",
			RunScheduler:           true,
			AbsenceSweepSchedule:   config.DefaultAbsenceSweepSchedule,
			SessionCleanupSchedule: "every tuesday",
		},
		Jobs: scheduler,
	}
	err := app.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), jobs.JobSessionCleanup) {
		t.Fatalf("expected schedule error for %s, got %v", jobs.JobSessionCleanup, err)
	}
}
