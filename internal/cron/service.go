package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/metrics"
)

const defaultTick = time.Minute

// Job is one maintenance task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule runs Job at most once per Every. A zero Every runs it on every
// tick.
type Schedule struct {
	Job   Job
	Every time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	Lock      Lock
	Metrics   *metrics.CronJobMetrics
	Tick      time.Duration
	Schedules []Schedule
}

type entry struct {
	Schedule
	next time.Time
}

// Service wakes up every tick, takes the cluster wide lock and runs whichever
// jobs are due. Only one worker runs jobs in a given cycle.
type Service struct {
	logg    *logger.Logger
	lock    Lock
	metrics *metrics.CronJobMetrics
	tick    time.Duration
	entries []*entry
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	entries := make([]*entry, 0, len(params.Schedules))
	for _, sched := range params.Schedules {
		if sched.Job == nil {
			continue
		}
		entries = append(entries, &entry{Schedule: sched})
	}
	return &Service{
		logg:    params.Logger,
		lock:    params.Lock,
		metrics: params.Metrics,
		tick:    tick,
		entries: entries,
		now:     time.Now,
	}, nil
}

// Run blocks until ctx is cancelled. The first cycle runs immediately.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle finished with errors", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs every due job and returns their combined errors. A failing
// job is still rescheduled so one bad job cannot starve the others.
func (s *Service) runCycle(ctx context.Context) error {
	now := s.now()
	due := s.due(now)
	if len(due) == 0 {
		return nil
	}

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.CycleSkipped()
		s.logg.Debug(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	var errs error
	for _, e := range due {
		e.next = now.Add(e.Every)
		errs = multierr.Append(errs, s.runJob(ctx, e.Job))
	}
	return errs
}

func (s *Service) due(now time.Time) []*entry {
	var out []*entry
	for _, e := range s.entries {
		if !now.Before(e.next) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(jobCtx)
	s.metrics.ObserveRun(job.Name(), started, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(started).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "cron job completed")
	return nil
}
