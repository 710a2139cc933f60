package dispatcher

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	base := 30 * time.Second
	ceiling := 15 * time.Minute

	tests := []struct {
		name    string
		attempt int
		hint    time.Duration
		want    time.Duration
	}{
		{name: "first attempt", attempt: 1, want: 30 * time.Second},
		{name: "second attempt doubles", attempt: 2, want: time.Minute},
		{name: "third attempt doubles again", attempt: 3, want: 2 * time.Minute},
		{name: "large attempt hits cap", attempt: 10, want: 15 * time.Minute},
		{name: "hint overrides shorter delay", attempt: 1, hint: 2 * time.Minute, want: 2 * time.Minute},
		{name: "hint below computed delay ignored", attempt: 3, hint: time.Second, want: 2 * time.Minute},
		{name: "hint may exceed cap", attempt: 1, hint: 30 * time.Minute, want: 30 * time.Minute},
		{name: "zero attempt treated as first", attempt: 0, want: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backoffDelay(base, ceiling, tt.attempt, tt.hint)
			if got != tt.want {
				t.Fatalf("backoffDelay(%d, hint=%s) = %s, want %s", tt.attempt, tt.hint, got, tt.want)
			}
		})
	}
}

func TestBackoffDelayDefaultsBase(t *testing.T) {
	if got := backoffDelay(0, 0, 1, 0); got != time.Second {
		t.Fatalf("backoffDelay with zero base = %s, want 1s", got)
	}
}

func TestBackoffDelayShiftIsBounded(t *testing.T) {
	got := backoffDelay(time.Second, 0, 1000, 0)
	if got <= 0 {
		t.Fatalf("backoffDelay overflowed: %s", got)
	}
}
