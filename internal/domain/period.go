package domain

import (
	"fmt"
	"time"
)

// Period identifies the recurrence unit: one calendar day in the
// subscription's timezone. At most one successful delivery happens per period.
type Period struct {
	Year  int
	Month time.Month
	Day   int
}

// PeriodOf returns the period the instant t falls into, interpreted in loc.
func PeriodOf(t time.Time, loc *time.Location) Period {
	y, m, d := t.In(loc).Date()
	return Period{Year: y, Month: m, Day: d}
}

// ParsePeriod parses the "2006-01-02" form used by the store.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Period{Year: y, Month: m, Day: d}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, int(p.Month), p.Day)
}

// Next returns the following calendar day.
func (p Period) Next() Period {
	t := time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	y, m, d := t.Date()
	return Period{Year: y, Month: m, Day: d}
}

// Date returns the period's midnight in loc.
func (p Period) Date(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, loc)
}

// DueAt returns the absolute instant the delivery time falls on within this
// period in loc.
func (p Period) DueAt(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, p.Day, tod.Hour, tod.Minute, 0, 0, loc)
}

// Before reports whether p is an earlier day than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	if p.Month != other.Month {
		return p.Month < other.Month
	}
	return p.Day < other.Day
}
