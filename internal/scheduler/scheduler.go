// Package scheduler repeats a job on a cron schedule until its context ends.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// ParseSchedule returns the standard cron schedule for expr, or a fixed
// interval schedule when expr is empty.
func ParseSchedule(expr string, every time.Duration) (cron.Schedule, error) {
	if expr == "" {
		if every <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive, got %s", every)
		}
		return cron.Every(every), nil
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Scheduler runs a job immediately and then at every schedule tick.
type Scheduler struct {
	schedule cron.Schedule
	log      *slog.Logger
}

// New creates a Scheduler.
func New(schedule cron.Schedule, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{schedule: schedule, log: log}
}

// Run blocks until ctx is done. Runs are paced start to start: the next
// tick follows the previous scheduled start, not the end of the run. A job
// already running when ctx ends is not interrupted: it gets a context that
// ignores cancellation and runs to completion before Run returns. Job errors
// are logged and the next tick proceeds.
func (s *Scheduler) Run(ctx context.Context, job Job) {
	start := time.Now()
	s.runOnce(ctx, job)

	for {
		next := NextRun(s.schedule, start, time.Now())
		if next.IsZero() {
			s.log.Warn("schedule has no further runs")
			return
		}
		s.log.Info("next run scheduled", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped")
			return
		case <-timer.C:
			start = next
			s.runOnce(ctx, job)
		}
	}
}

// NextRun returns the first tick after prev that is still ahead of now.
// Ticks missed while a long run was in progress are skipped, not queued.
// A zero time means the schedule has no further ticks.
func NextRun(schedule cron.Schedule, prev, now time.Time) time.Time {
	next := schedule.Next(prev)
	for !next.IsZero() && !next.After(now) {
		next = schedule.Next(next)
	}
	return next
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if err := job(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("scheduled run failed (will retry on next tick)", slog.Any("err", err))
	}
}
