package scheduler

import (
	"context"
	"errors"
	"time"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
)

// Scheduler drives job creation from wall-clock time. It never executes
// deliveries itself and never blocks on providers or transports: each tick
// only talks to the store, so a single tick after an arbitrarily long outage
// catches up every overdue subscription.
type Scheduler struct {
	subs     domain.SubscriptionRepository
	jobs     domain.JobRepository
	interval time.Duration
	logger   infra.Logger
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Options configures a Scheduler.
type Options struct {
	Subscriptions domain.SubscriptionRepository
	Jobs          domain.JobRepository
	TickInterval  time.Duration
	Logger        infra.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// New constructs a stopped Scheduler.
func New(opts Options) *Scheduler {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		subs:     opts.Subscriptions,
		jobs:     opts.Jobs,
		interval: interval,
		logger:   opts.Logger,
		now:      now,
	}
}

// Start launches the tick loop. It returns immediately; Stop waits for the
// loop to drain.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("scheduler: started")

		// First tick runs immediately so restart recovery does not wait
		// a full interval.
		s.Tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info().Msg("scheduler: stopped")
}

// Tick runs one scheduling pass: sweep expired leases, then create a job for
// every due subscription. Duplicate creation races are resolved by the store,
// so overlapping ticks are harmless.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	released, err := s.jobs.ReleaseExpired(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: lease sweep failed")
	} else if released > 0 {
		s.logger.Warn().Int("count", released).Msg("scheduler: reverted expired running jobs to pending")
	}

	due, err := s.subs.GetDue(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: due scan failed")
		return
	}

	for i := range due {
		sub := &due[i]
		if err := s.createJob(ctx, sub, now); err != nil {
			s.logger.Error().Err(err).
				Str("subscription_id", sub.ID).
				Int64("user_id", sub.UserID).
				Msg("scheduler: job creation failed")
		}
	}
}

func (s *Scheduler) createJob(ctx context.Context, sub *domain.Subscription, now time.Time) error {
	loc := sub.Location()
	period := domain.PeriodOf(now, loc)
	dueAt := period.DueAt(sub.DeliveryTime, loc)

	job, err := s.jobs.Create(ctx, sub.ID, period, dueAt)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateJob) {
			s.logger.Debug().
				Str("subscription_id", sub.ID).
				Str("period", period.String()).
				Msg("scheduler: job already exists for period")
			return nil
		}
		return err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("subscription_id", sub.ID).
		Int64("user_id", sub.UserID).
		Str("period", period.String()).
		Msg("scheduler: job created")
	return nil
}
