package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/owldoor/door-news/internal/scheduler"
)

type quickSchedule struct{}

func (quickSchedule) Next(t time.Time) time.Time { return t.Add(5 * time.Millisecond) }

func TestRunRepeatsAfterFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	var detached []error
	job := func(jobCtx context.Context) error {
		calls++
		if calls == 3 {
			cancel()
			detached = append(detached, jobCtx.Err())
			return nil
		}
		return errors.New("publish failed")
	}

	done := make(chan struct{})
	go func() {
		scheduler.New(quickSchedule{}, nil).Run(ctx, job)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	require.Equal(t, 3, calls)
	require.Equal(t, []error{nil}, detached)
}

func TestRunStartsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ran := false
	job := func(context.Context) error {
		ran = true
		cancel()
		return nil
	}

	sched, err := scheduler.ParseSchedule("", time.Hour)
	require.NoError(t, err)
	scheduler.New(sched, nil).Run(ctx, job)
	require.True(t, ran)
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC)

	every, err := scheduler.ParseSchedule("", time.Hour)
	require.NoError(t, err)
	require.Equal(t, base.Add(time.Hour), every.Next(base))

	hourly, err := scheduler.ParseSchedule("0 * * * *", 0)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), hourly.Next(base))

	_, err = scheduler.ParseSchedule("", 0)
	require.Error(t, err)

	_, err = scheduler.ParseSchedule("not a cron", time.Hour)
	require.Error(t, err)
}

func TestNextRunPacesStartToStart(t *testing.T) {
	sched, err := scheduler.ParseSchedule("", time.Hour)
	require.NoError(t, err)
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	// A 10 minute cycle does not push the next start back.
	next := scheduler.NextRun(sched, start, start.Add(10*time.Minute))
	require.Equal(t, start.Add(time.Hour), next)

	// A cycle longer than the interval skips the missed tick.
	next = scheduler.NextRun(sched, start, start.Add(70*time.Minute))
	require.Equal(t, start.Add(2*time.Hour), next)
}

func TestNextRunCron(t *testing.T) {
	sched, err := scheduler.ParseSchedule("0 * * * *", 0)
	require.NoError(t, err)
	start := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	next := scheduler.NextRun(sched, start, start.Add(5*time.Minute))
	require.Equal(t, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), next)
}
