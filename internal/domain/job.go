package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusAbandoned JobStatus = "abandoned"
)

// Job is one scheduled delivery for a subscription in a given period.
// A job is claimed by exactly one worker at a time; the claim carries a lease
// so a crashed worker's job can be reclaimed after the lease expires.
type Job struct {
	ID             string
	SubscriptionID string
	Period         Period
	// DueAt is the instant the delivery became due within the period.
	DueAt time.Time
	// RunAt is the earliest next execution instant; retries push it forward.
	RunAt          time.Time
	AttemptCount   int
	Status         JobStatus
	LastError      string
	LeaseExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether the job can no longer transition.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusAbandoned
}
