package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
)

// ContentProvider fetches the timetable for one date. Calls must be
// idempotent and side-effect free so the dispatcher can retry them.
type ContentProvider interface {
	FetchDay(ctx context.Context, query string, mode domain.Mode, date time.Time) (*domain.ScheduleDay, error)
}

// Renderer turns fetched content into a deliverable artifact. It is a pure
// function of its inputs and safe to call concurrently.
type Renderer interface {
	Render(day *domain.ScheduleDay, locale, query string, date time.Time) (*domain.Artifact, error)
}

// Transport sends the artifact to the user. Implementations must return
// *domain.SendError so permanent rejections can disable the subscription.
type Transport interface {
	Send(ctx context.Context, userID int64, artifact *domain.Artifact) error
}

// outcomeTimeout bounds the store writes that record a job's result.
const outcomeTimeout = 10 * time.Second

// Options configures a Dispatcher.
type Options struct {
	Jobs          domain.JobRepository
	Subscriptions domain.SubscriptionRepository
	Provider      ContentProvider
	Renderer      Renderer
	Transport     Transport
	Logger        infra.Logger

	Workers       int
	PollInterval  time.Duration
	LeaseDuration time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	FetchTimeout  time.Duration
	RenderTimeout time.Duration
	SendTimeout   time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Dispatcher runs a bounded worker pool that claims pending jobs and drives
// each through fetch, render and send. All cross-worker coordination happens
// through the store's atomic claim; workers share no in-memory state.
type Dispatcher struct {
	opts Options
	now  func() time.Time
	log  infra.Logger
}

// New constructs a Dispatcher, applying defaults for unset tuning values.
func New(opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.LeaseDuration <= 0 {
		opts.LeaseDuration = 5 * time.Minute
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 30 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 12 * time.Second
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 10 * time.Second
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{opts: opts, now: now, log: opts.Logger}
}

// Run blocks until ctx is cancelled, then waits for in-flight jobs to record
// their outcome. Jobs interrupted mid-stage re-arm through the retry path;
// a worker killed outright is covered by the lease sweep.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().Int("workers", d.opts.Workers).Msg("dispatcher: started")

	var wg sync.WaitGroup
	for i := 0; i < d.opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.runWorker(ctx, worker)
		}(i)
	}
	wg.Wait()

	d.log.Info().Msg("dispatcher: stopped")
	return ctx.Err()
}

func (d *Dispatcher) runWorker(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := d.opts.Jobs.ClaimNext(ctx, d.now(), d.opts.LeaseDuration)
		if err != nil {
			if !errors.Is(err, domain.ErrJobNotClaimable) {
				d.log.Error().Err(err).Int("worker", worker).Msg("dispatcher: claim failed")
			}
			d.sleep(ctx, d.opts.PollInterval)
			continue
		}

		d.handleJob(ctx, worker, job)
	}
}

// outcomeContext bounds the store writes that record a job's result. It is
// detached from the worker context so a shutdown mid-job still records the
// outcome, and it must be created only once the delivery pipeline has
// finished: a deadline started at claim time would already be spent by the
// time a slow send returns.
func outcomeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), outcomeTimeout)
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Dispatcher) handleJob(ctx context.Context, worker int, job *domain.Job) {
	log := d.log.With().
		Int("worker", worker).
		Str("job_id", job.ID).
		Str("subscription_id", job.SubscriptionID).
		Int("attempt", job.AttemptCount+1).
		Logger()

	sub, err := d.opts.Subscriptions.GetByID(ctx, job.SubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("dispatcher: subscription gone, abandoning job")
			octx, cancel := outcomeContext()
			defer cancel()
			d.abandon(octx, job, "subscription no longer exists")
			return
		}
		// Store trouble, not a delivery failure: leave the job running
		// and let the lease sweep re-arm it once the store recovers.
		log.Error().Err(err).Msg("dispatcher: subscription lookup failed")
		return
	}

	log = log.With().Int64("user_id", sub.UserID).Str("query", sub.Query).Logger()
	log.Info().Msg("dispatcher: picked job")

	if err := d.deliver(ctx, job, sub); err != nil {
		octx, cancel := outcomeContext()
		defer cancel()
		d.resolveFailure(octx, log, job, sub, err)
		return
	}

	octx, cancel := outcomeContext()
	defer cancel()
	if err := d.opts.Jobs.Complete(octx, job.ID); err != nil {
		// The artifact went out; an incomplete record here means the
		// lease sweep re-runs the job, so surface it loudly.
		log.Error().Err(err).Msg("dispatcher: completion write failed after successful send")
		return
	}
	log.Info().Msg("dispatcher: delivered")
}

// deliver runs the three stages. The artifact is recomputed on every attempt
// so a retry never sends stale content.
func (d *Dispatcher) deliver(ctx context.Context, job *domain.Job, sub *domain.Subscription) error {
	loc := sub.Location()
	// A job for period P delivers the timetable for the following day,
	// matching the evening-notification semantics.
	targetDate := job.Period.Next().Date(loc)

	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	day, err := d.opts.Provider.FetchDay(fetchCtx, sub.Query, sub.Mode, targetDate)
	cancel()
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return err
		}
		return &domain.FetchError{Err: err}
	}

	artifact, err := d.render(ctx, day, sub, targetDate)
	if err != nil {
		var re *domain.RenderError
		if errors.As(err, &re) {
			return err
		}
		return &domain.RenderError{Err: err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	err = d.opts.Transport.Send(sendCtx, sub.UserID, artifact)
	cancel()
	if err != nil {
		var se *domain.SendError
		if errors.As(err, &se) {
			return err
		}
		return &domain.SendError{Err: err}
	}
	return nil
}

// render bounds the render stage with a deadline even though it never does
// I/O: a runaway renderer must not pin a worker past its lease.
func (d *Dispatcher) render(ctx context.Context, day *domain.ScheduleDay, sub *domain.Subscription, date time.Time) (*domain.Artifact, error) {
	type result struct {
		artifact *domain.Artifact
		err      error
	}
	done := make(chan result, 1)
	go func() {
		artifact, err := d.opts.Renderer.Render(day, sub.Locale, sub.Query, date)
		done <- result{artifact: artifact, err: err}
	}()

	timer := time.NewTimer(d.opts.RenderTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.artifact, r.err
	case <-ctx.Done():
		return nil, &domain.RenderError{Err: ctx.Err()}
	case <-timer.C:
		return nil, &domain.RenderError{Err: fmt.Errorf("render stage exceeded %s", d.opts.RenderTimeout)}
	}
}

func (d *Dispatcher) resolveFailure(ctx context.Context, log infra.Logger, job *domain.Job, sub *domain.Subscription, err error) {
	var se *domain.SendError
	if errors.As(err, &se) && se.Permanent {
		log.Warn().Err(err).Msg("dispatcher: permanent rejection, disabling subscription")
		if derr := d.opts.Subscriptions.SetEnabled(ctx, sub.ID, false); derr != nil {
			log.Error().Err(derr).Msg("dispatcher: disable subscription failed")
		}
		d.abandon(ctx, job, err.Error())
		return
	}

	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.Permanent {
		log.Warn().Err(err).Msg("dispatcher: content permanently unavailable, abandoning")
		d.abandon(ctx, job, err.Error())
		d.flag(ctx, log, sub)
		return
	}

	var re *domain.RenderError
	if errors.As(err, &re) {
		// Render failures on valid content point at the renderer, not
		// the network; keep them visually distinct in the logs.
		log.Error().Err(err).Msg("dispatcher: render stage failed")
	}

	attempt := job.AttemptCount + 1
	if attempt >= d.opts.MaxAttempts {
		log.Warn().Err(err).Int("attempts", attempt).Msg("dispatcher: attempts exhausted, abandoning")
		d.abandon(ctx, job, err.Error())
		d.flag(ctx, log, sub)
		return
	}

	var hint time.Duration
	if se != nil {
		hint = se.RetryAfter
	}
	delay := backoffDelay(d.opts.BackoffBase, d.opts.BackoffCap, attempt, hint)
	nextRun := d.now().Add(delay)
	log.Warn().Err(err).Dur("retry_in", delay).Msg("dispatcher: stage failed, re-arming")
	if rerr := d.opts.Jobs.RecordFailure(ctx, job.ID, attempt, err.Error(), nextRun); rerr != nil {
		log.Error().Err(rerr).Msg("dispatcher: failure record failed")
	}
}

func (d *Dispatcher) abandon(ctx context.Context, job *domain.Job, reason string) {
	if err := d.opts.Jobs.Abandon(ctx, job.ID, reason); err != nil {
		d.log.Error().Err(err).Str("job_id", job.ID).Msg("dispatcher: abandon failed")
	}
}

func (d *Dispatcher) flag(ctx context.Context, log infra.Logger, sub *domain.Subscription) {
	if sub.Flagged {
		return
	}
	if err := d.opts.Subscriptions.SetFlagged(ctx, sub.ID, true); err != nil {
		log.Error().Err(err).Msg("dispatcher: flag subscription failed")
	}
}
