// Package jobs runs periodic background work on a gocron scheduler.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultSampleInterval is how often the open-session gauge is refreshed.
const DefaultSampleInterval = time.Minute

// OpenSessionCounter counts sessions without an end time.
type OpenSessionCounter interface {
	CountOpenSessions(ctx context.Context) (int, error)
}

// OpenSessionGauge receives the sampled count.
type OpenSessionGauge interface {
	SetOpenSessions(n int)
}

// SampleOpenSessions reads the open-session count once and publishes it.
func SampleOpenSessions(ctx context.Context, counter OpenSessionCounter, gauge OpenSessionGauge) error {
	n, err := counter.CountOpenSessions(ctx)
	if err != nil {
		return err
	}
	gauge.SetOpenSessions(n)
	return nil
}

// Scheduler wraps the gocron scheduler that owns the bot's periodic jobs.
type Scheduler struct {
	sched gocron.Scheduler
}

// Start schedules the open-session sampler every interval, running it once
// immediately. Jobs stop seeing new runs once Stop is called.
func Start(ctx context.Context, counter OpenSessionCounter, gauge OpenSessionGauge, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	logger := slog.Default().With(slog.String("component", "jobs"))

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			if err := SampleOpenSessions(runCtx, counter, gauge); err != nil {
				logger.Warn("open session sample failed", slog.Any("err", err))
			}
		}),
		gocron.WithName("sample_open_sessions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule open session sampler: %w", err)
	}

	sched.Start()
	logger.Info("scheduler started", slog.Duration("sample_interval", interval))
	return &Scheduler{sched: sched}, nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	return nil
}
