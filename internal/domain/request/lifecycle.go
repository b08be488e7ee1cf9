package request

import (
	"fmt"
	"time"
)

// DateLayout is the persisted calendar date format (MM/DD/YYYY). Month and
// day may be written with one or two digits; the year always has four.
const DateLayout = "1/2/2006"

// ParseDate parses s as a calendar date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// CalendarDate truncates t to midnight of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextMidnight returns the start of the calendar day after now, in now's
// location. On DST transition days the gap is 23 or 25 hours.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// CompletionDue reports whether a Processed request with the given end date
// should be auto-completed on the calendar day of now: only once today is
// strictly after end_date.
func CompletionDue(endDate string, now time.Time) (bool, error) {
	end, err := ParseDate(endDate, now.Location())
	if err != nil {
		return false, err
	}
	return CalendarDate(now).After(end), nil
}

// The only automatic transition.
const (
	CompletionFrom = StatusProcessed
	CompletionTo   = StatusCompleted
)
