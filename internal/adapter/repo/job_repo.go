package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
	"schedbot/internal/sqlinline"
)

const uniqueViolation = "23505"

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(db infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// Create inserts a pending job for the subscription and period. The unique
// index on (subscription_id, period_date) turns a duplicate insert into
// domain.ErrDuplicateJob, which makes overlapping scheduler ticks harmless.
func (r *JobRepositoryPG) Create(ctx context.Context, subscriptionID string, period domain.Period, dueAt time.Time) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, sqlinline.QCreateJob,
		uuid.NewString(),
		subscriptionID,
		period.String(),
		dueAt,
	)
	job, err := scanJob(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateJob
		}
		return nil, err
	}
	return job, nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetJobByID, id)
	return scanJob(row)
}

// ClaimNext atomically claims the oldest runnable pending job.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, sqlinline.QClaimNextJob, now, now.Add(lease))
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrJobNotClaimable
		}
		return nil, err
	}
	return job, nil
}

// Claim atomically transitions the given job from pending to running. Losing
// a claim race surfaces as domain.ErrJobNotClaimable, not as a failure.
func (r *JobRepositoryPG) Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, sqlinline.QClaimJob, id, now, now.Add(lease))
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrJobNotClaimable
		}
		return nil, err
	}
	return job, nil
}

// Complete marks the job succeeded and advances the owning subscription's
// last successful delivery in the same statement. Success is judged by the
// job transition alone; a subscription deleted mid-delivery does not turn a
// recorded completion into an error.
func (r *JobRepositoryPG) Complete(ctx context.Context, id string) error {
	var completed int
	if err := r.db.QueryRow(ctx, sqlinline.QCompleteJob, id).Scan(&completed); err != nil {
		return err
	}
	if completed == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordFailure re-arms the job as pending with an advanced run instant.
func (r *JobRepositoryPG) RecordFailure(ctx context.Context, id string, attempt int, lastError string, nextRun time.Time) error {
	tag, err := r.db.Exec(ctx, sqlinline.QRecordJobFailure, id, attempt, lastError, nextRun)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Abandon moves the job to its terminal failure state.
func (r *JobRepositoryPG) Abandon(ctx context.Context, id string, lastError string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QAbandonJob, id, lastError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReleaseExpired reverts running jobs with expired leases back to pending.
func (r *JobRepositoryPG) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QReleaseExpiredJobs, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListAbandoned returns abandoned jobs for operator visibility.
func (r *JobRepositoryPG) ListAbandoned(ctx context.Context) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListAbandonedJobs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Requeue re-arms an abandoned job for another delivery round.
func (r *JobRepositoryPG) Requeue(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, sqlinline.QRequeueJob, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByStatus returns job counts per lifecycle state.
func (r *JobRepositoryPG) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.db.Query(ctx, sqlinline.QCountJobsByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.JobStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job        domain.Job
		periodDate time.Time
		status     string
	)
	if err := row.Scan(
		&job.ID,
		&job.SubscriptionID,
		&periodDate,
		&job.DueAt,
		&job.RunAt,
		&job.AttemptCount,
		&status,
		&job.LastError,
		&job.LeaseExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Period = domain.PeriodOf(periodDate, time.UTC)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
