package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schedbot/internal/domain"
)

type fakeSubs struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscription
}

func newFakeSubs(subs ...*domain.Subscription) *fakeSubs {
	f := &fakeSubs{subs: make(map[string]*domain.Subscription)}
	for _, s := range subs {
		cp := *s
		f.subs[s.ID] = &cp
	}
	return f
}

func (f *fakeSubs) get(id string) *domain.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[id]
}

func (f *fakeSubs) Upsert(_ context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.subs[sub.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeSubs) GetByID(_ context.Context, id string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubs) GetByUserID(_ context.Context, userID int64) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.UserID == userID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSubs) List(_ context.Context) ([]domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		out = append(out, *sub)
	}
	return out, nil
}

func (f *fakeSubs) SetEnabled(_ context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Enabled = enabled
	return nil
}

func (f *fakeSubs) SetFlagged(_ context.Context, id string, flagged bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Flagged = flagged
	return nil
}

func (f *fakeSubs) GetDue(_ context.Context, _ time.Time) ([]domain.Subscription, error) {
	return nil, nil
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	seq  int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*domain.Job)}
}

func (f *fakeJobs) add(job *domain.Job) *domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", f.seq)
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	cp := *job
	f.jobs[job.ID] = &cp
	out := cp
	return &out
}

func (f *fakeJobs) get(id string) *domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	if job == nil {
		return nil
	}
	cp := *job
	return &cp
}

func (f *fakeJobs) Create(_ context.Context, subscriptionID string, period domain.Period, dueAt time.Time) (*domain.Job, error) {
	f.mu.Lock()
	for _, job := range f.jobs {
		if job.SubscriptionID == subscriptionID && job.Period == period {
			f.mu.Unlock()
			return nil, domain.ErrDuplicateJob
		}
	}
	f.mu.Unlock()
	return f.add(&domain.Job{
		SubscriptionID: subscriptionID,
		Period:         period,
		DueAt:          dueAt,
		RunAt:          dueAt,
		Status:         domain.JobStatusPending,
	}), nil
}

func (f *fakeJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	job := f.get(id)
	if job == nil {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobs) ClaimNext(_ context.Context, now time.Time, lease time.Duration) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *domain.Job
	for _, job := range f.jobs {
		if job.Status != domain.JobStatusPending || job.RunAt.After(now) {
			continue
		}
		if oldest == nil || job.RunAt.Before(oldest.RunAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, domain.ErrJobNotClaimable
	}
	oldest.Status = domain.JobStatusRunning
	expiry := now.Add(lease)
	oldest.LeaseExpiresAt = &expiry
	cp := *oldest
	return &cp, nil
}

func (f *fakeJobs) Claim(_ context.Context, id string, now time.Time, lease time.Duration) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != domain.JobStatusPending || job.RunAt.After(now) {
		return nil, domain.ErrJobNotClaimable
	}
	job.Status = domain.JobStatusRunning
	expiry := now.Add(lease)
	job.LeaseExpiresAt = &expiry
	cp := *job
	return &cp, nil
}

func (f *fakeJobs) Complete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusSucceeded
	job.LeaseExpiresAt = nil
	return nil
}

func (f *fakeJobs) RecordFailure(_ context.Context, id string, attempt int, lastError string, nextRun time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusPending
	job.AttemptCount = attempt
	job.LastError = lastError
	job.RunAt = nextRun
	job.LeaseExpiresAt = nil
	return nil
}

func (f *fakeJobs) Abandon(_ context.Context, id string, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusAbandoned
	job.LastError = lastError
	job.LeaseExpiresAt = nil
	return nil
}

func (f *fakeJobs) ReleaseExpired(_ context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	released := 0
	for _, job := range f.jobs {
		if job.Status == domain.JobStatusRunning && job.LeaseExpiresAt != nil && job.LeaseExpiresAt.Before(now) {
			job.Status = domain.JobStatusPending
			job.LeaseExpiresAt = nil
			released++
		}
	}
	return released, nil
}

func (f *fakeJobs) ListAbandoned(_ context.Context) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Job
	for _, job := range f.jobs {
		if job.Status == domain.JobStatusAbandoned {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeJobs) Requeue(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != domain.JobStatusAbandoned {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusPending
	job.AttemptCount = 0
	job.LastError = ""
	return nil
}

func (f *fakeJobs) CountByStatus(_ context.Context) (map[domain.JobStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.JobStatus]int)
	for _, job := range f.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*domain.ScheduleDay, error)
}

func (f *fakeProvider) FetchDay(_ context.Context, _ string, _ domain.Mode, date time.Time) (*domain.ScheduleDay, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(call)
	}
	return &domain.ScheduleDay{Date: date.Format("2006-01-02"), Weekday: date.Weekday().String()}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(day *domain.ScheduleDay, _ string, _ string, _ time.Time) (*domain.Artifact, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Artifact{Kind: domain.ArtifactText, Data: []byte(day.Weekday)}, nil
}

type fakeTransport struct {
	mu    sync.Mutex
	calls int
	sent  []int64
	fn    func(call int) error
}

func (f *fakeTransport) Send(_ context.Context, userID int64, _ *domain.Artifact) error {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(call); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.sent = append(f.sent, userID)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) delivered() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sent...)
}

var _ domain.SubscriptionRepository = (*fakeSubs)(nil)
var _ domain.JobRepository = (*fakeJobs)(nil)
