package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// JobFunc runs one full batch for the slot starting at runAt.
type JobFunc func(ctx context.Context, runAt time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
	// RunOnStart fires one job immediately instead of waiting for the first slot.
	RunOnStart bool
}

// Scheduler repeats a job on a fixed, optionally wall-clock aligned, interval.
// Jobs never overlap: the next slot is computed after the current job returns.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run blocks, invoking job at each slot until ctx is cancelled. Job errors are
// logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, job JobFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.RunOnStart {
		s.fire(ctx, job, s.now())
	}

	for {
		next := s.NextTick(s.now())
		s.logger.Debug().Time("next_run", next).Msg("waiting for next run")

		if err := sleep(ctx, time.Until(next)); err != nil {
			return err
		}
		s.fire(ctx, job, s.slotStart(next))
	}
}

func (s *Scheduler) fire(ctx context.Context, job JobFunc, runAt time.Time) {
	s.logger.Info().Time("run_at", runAt).Msg("starting scheduled run")
	if err := job(ctx, runAt); err != nil {
		s.logger.Error().Err(err).Time("run_at", runAt).Msg("scheduled run failed")
	}
}

// NextTick returns the next slot strictly after now.
func (s *Scheduler) NextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	slot := now.Truncate(s.opts.Interval)
	if !slot.After(now) {
		slot = slot.Add(s.opts.Interval)
	}
	return slot
}

func (s *Scheduler) slotStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
