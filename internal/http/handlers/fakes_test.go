package handlers_test

import (
	"context"
	"time"

	"schedbot/internal/domain"
)

type stubSubs struct {
	upsert     func(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	getByID    func(ctx context.Context, id string) (*domain.Subscription, error)
	list       func(ctx context.Context) ([]domain.Subscription, error)
	setEnabled func(ctx context.Context, id string, enabled bool) error
	setFlagged func(ctx context.Context, id string, flagged bool) error
}

func (s *stubSubs) Upsert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if s.upsert == nil {
		return nil, domain.ErrNotFound
	}
	return s.upsert(ctx, sub)
}

func (s *stubSubs) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	if s.getByID == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByID(ctx, id)
}

func (s *stubSubs) GetByUserID(context.Context, int64) (*domain.Subscription, error) {
	return nil, domain.ErrNotFound
}

func (s *stubSubs) List(ctx context.Context) ([]domain.Subscription, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx)
}

func (s *stubSubs) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if s.setEnabled == nil {
		return domain.ErrNotFound
	}
	return s.setEnabled(ctx, id, enabled)
}

func (s *stubSubs) SetFlagged(ctx context.Context, id string, flagged bool) error {
	if s.setFlagged == nil {
		return domain.ErrNotFound
	}
	return s.setFlagged(ctx, id, flagged)
}

func (s *stubSubs) GetDue(context.Context, time.Time) ([]domain.Subscription, error) {
	return nil, nil
}

type stubJobs struct {
	getByID       func(ctx context.Context, id string) (*domain.Job, error)
	listAbandoned func(ctx context.Context) ([]domain.Job, error)
	requeue       func(ctx context.Context, id string) error
	countByStatus func(ctx context.Context) (map[domain.JobStatus]int, error)
}

func (s *stubJobs) Create(context.Context, string, domain.Period, time.Time) (*domain.Job, error) {
	return nil, domain.ErrDuplicateJob
}

func (s *stubJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	if s.getByID == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByID(ctx, id)
}

func (s *stubJobs) ClaimNext(context.Context, time.Time, time.Duration) (*domain.Job, error) {
	return nil, domain.ErrJobNotClaimable
}

func (s *stubJobs) Claim(context.Context, string, time.Time, time.Duration) (*domain.Job, error) {
	return nil, domain.ErrJobNotClaimable
}

func (s *stubJobs) Complete(context.Context, string) error { return domain.ErrNotFound }

func (s *stubJobs) RecordFailure(context.Context, string, int, string, time.Time) error {
	return domain.ErrNotFound
}

func (s *stubJobs) Abandon(context.Context, string, string) error { return domain.ErrNotFound }

func (s *stubJobs) ReleaseExpired(context.Context, time.Time) (int, error) { return 0, nil }

func (s *stubJobs) ListAbandoned(ctx context.Context) ([]domain.Job, error) {
	if s.listAbandoned == nil {
		return nil, nil
	}
	return s.listAbandoned(ctx)
}

func (s *stubJobs) Requeue(ctx context.Context, id string) error {
	if s.requeue == nil {
		return domain.ErrNotFound
	}
	return s.requeue(ctx, id)
}

func (s *stubJobs) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	if s.countByStatus == nil {
		return map[domain.JobStatus]int{}, nil
	}
	return s.countByStatus(ctx)
}

var (
	_ domain.SubscriptionRepository = (*stubSubs)(nil)
	_ domain.JobRepository          = (*stubJobs)(nil)
)
