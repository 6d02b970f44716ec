package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "rostersync/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in ISO form (YYYY-MM-DD).
type Date string

// ParseDate validates s as an ISO calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("invalid date %q", s))
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

func (d Date) String() string { return string(d) }

// Time returns midnight UTC of d. Zero for an invalid date.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// WeekStart returns the Monday on or before d.
func (d Date) WeekStart() Date {
	t := d.Time()
	offset := (int(t.Weekday()) + 6) % 7
	return DateOf(t.AddDate(0, 0, -offset))
}

// TimeOfDay is a 24-hour wall clock time in HH:MM form.
type TimeOfDay string

// ParseTimeOfDay accepts H:MM, HH:MM and HH:MM:SS and normalizes to HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Format("15:04")), nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("invalid time of day %q", s))
}

func (t TimeOfDay) String() string { return string(t) }
