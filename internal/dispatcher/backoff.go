package dispatcher

import "time"

const maxBackoffShift = 16

// backoffDelay returns the wait before retry number attempt (1-based):
// base doubled per prior attempt, capped, and never shorter than the
// transport's rate-limit hint.
func backoffDelay(base, cap time.Duration, attempt int, hint time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	d := base << uint(shift)
	if cap > 0 && d > cap {
		d = cap
	}
	if hint > d {
		d = hint
	}
	return d
}
