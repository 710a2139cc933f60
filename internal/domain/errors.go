package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidSubscription = errors.New("invalid subscription")
	// ErrDuplicateJob signals a job already exists for the same
	// subscription and period. Scheduler ticks treat it as success.
	ErrDuplicateJob = errors.New("duplicate job")
	// ErrJobNotClaimable signals a claim race lost or a job that is no
	// longer pending. Not an error condition for workers.
	ErrJobNotClaimable = errors.New("job not claimable")
	// ErrStoreUnavailable is fatal to the process; it is surfaced, never
	// retried locally.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// FetchError classifies a Content Provider failure. Permanent means the
// content does not exist for the requested period and retrying is pointless.
type FetchError struct {
	Permanent bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("fetch (%s): %v", kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RenderError marks a Renderer failure. Repeated render failures on valid
// content indicate a rendering defect and are surfaced distinctly in logs.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render: %v", e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// SendError classifies a Transport Adapter failure. Permanent rejections
// (user blocked the bot, dead chat) disable the subscription instead of
// retrying. RetryAfter carries the transport's rate-limit hint when present.
type SendError struct {
	Permanent  bool
	RetryAfter time.Duration
	Err        error
}

func (e *SendError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("send (%s): %v", kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
