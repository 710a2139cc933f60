package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which timetable entity a subscription follows.
type Mode string

const (
	ModeGroup   Mode = "group"
	ModeTeacher Mode = "teacher"
)

// DefaultDeliveryTime is used when a subscription does not set its own.
const DefaultDeliveryTime = "21:00"

// DefaultTimezone matches the campus timezone.
const DefaultTimezone = "Europe/Moscow"

// Subscription is one user's recurring delivery setup. At most one
// subscription exists per user ID; the store enforces it.
type Subscription struct {
	ID           string
	UserID       int64
	Query        string
	Mode         Mode
	DeliveryTime TimeOfDay
	Timezone     string
	Locale       string
	Enabled      bool
	Flagged      bool
	// LastDelivery is the most recent period with a succeeded delivery.
	// It guards against re-delivery after restarts.
	LastDelivery *Period
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Location resolves the subscription's timezone, falling back to the default.
func (s *Subscription) Location() *time.Location {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	if loc == nil {
		loc = time.UTC
	}
	return loc
}

// Validate checks the fields callers are allowed to set.
func (s *Subscription) Validate() error {
	if s.UserID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidSubscription)
	}
	if strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidSubscription)
	}
	if s.Mode != ModeGroup && s.Mode != ModeTeacher {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSubscription, s.Mode)
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSubscription, s.Timezone)
		}
	}
	return nil
}

// TimeOfDay is a wall-clock time without a date, e.g. "21:00".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var tod TimeOfDay
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &tod.Hour, &tod.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return tod, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
