package domain

import (
	"context"
	"time"
)

// SubscriptionRepository defines persistence for subscriptions.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *Subscription) (*Subscription, error)
	GetByID(ctx context.Context, id string) (*Subscription, error)
	GetByUserID(ctx context.Context, userID int64) (*Subscription, error)
	List(ctx context.Context) ([]Subscription, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	SetFlagged(ctx context.Context, id string, flagged bool) error
	// GetDue returns enabled subscriptions whose delivery time for the
	// current day in their own timezone has passed, that have not been
	// delivered for that day, and that have no live job for it.
	GetDue(ctx context.Context, now time.Time) ([]Subscription, error)
}

// JobRepository defines persistence for delivery jobs. All mutations are
// transactional; claim operations are atomic compare-and-swap.
type JobRepository interface {
	// Create inserts a pending job, failing with ErrDuplicateJob when one
	// already exists for the same subscription and period.
	Create(ctx context.Context, subscriptionID string, period Period, dueAt time.Time) (*Job, error)
	GetByID(ctx context.Context, id string) (*Job, error)
	// ClaimNext atomically claims the oldest runnable pending job and
	// returns ErrJobNotClaimable when none is available.
	ClaimNext(ctx context.Context, now time.Time, lease time.Duration) (*Job, error)
	// Claim atomically transitions a specific job from pending to running.
	Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (*Job, error)
	// Complete marks the job succeeded and advances the subscription's
	// last successful delivery to the job's period in the same transaction.
	Complete(ctx context.Context, id string) error
	// RecordFailure re-arms the job as pending with the given attempt
	// count and next run instant.
	RecordFailure(ctx context.Context, id string, attempt int, lastError string, nextRun time.Time) error
	Abandon(ctx context.Context, id string, lastError string) error
	// ReleaseExpired reverts running jobs whose lease has expired back to
	// pending and returns how many were reverted.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
	ListAbandoned(ctx context.Context) ([]Job, error)
	// Requeue re-arms an abandoned job for another delivery round.
	Requeue(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[JobStatus]int, error)
}
