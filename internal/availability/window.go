package availability

import (
	"errors"
	"time"
)

var (
	// ErrMissingTenant means the caller could not be identified; handlers map
	// it to an authorization failure rather than a bad request.
	ErrMissingTenant = errors.New("tenant context required")

	ErrMissingResource = errors.New("resource id is required")
	ErrNoResources     = errors.New("at least one resource id is required")
	ErrInvalidQuery    = errors.New("either a date or a startDate/endDate pair must be provided")
	ErrInvalidRange    = errors.New("endDate must not be before startDate")
)

// Query is the ephemeral availability question: exactly one of a single
// calendar date or an explicit start/end pair.
type Query struct {
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
}

// Window is the effective closed interval an availability check evaluates.
type Window struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Window normalizes the query. A single date expands to the full calendar day
// [00:00:00.000, 23:59:59.999] in that date's location; an explicit range is
// used verbatim, with no time-of-day normalization.
func (q Query) Window() (Window, error) {
	switch {
	case q.Date != nil && (q.StartDate != nil || q.EndDate != nil):
		return Window{}, ErrInvalidQuery
	case q.Date != nil:
		return DayWindow(*q.Date), nil
	case q.StartDate != nil && q.EndDate != nil:
		if q.EndDate.Before(*q.StartDate) {
			return Window{}, ErrInvalidRange
		}
		return Window{Start: *q.StartDate, End: *q.EndDate}, nil
	default:
		return Window{}, ErrInvalidQuery
	}
}

// DayWindow returns the closed full-day interval containing t.
func DayWindow(t time.Time) Window {
	y, m, d := t.Date()
	loc := t.Location()
	return Window{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d, 23, 59, 59, 999_000_000, loc),
	}
}

// Overlaps reports whether [start, end] intersects the window under the
// closed-interval rule: stored.start <= window.end AND stored.end >=
// window.start. Boundary touches count as conflicts: two bookings meeting at
// the same instant still contend for the physical unit. Keep this comparison
// inclusive; the SQL predicate in FindOverlapping must match it exactly.
func (w Window) Overlaps(start, end time.Time) bool {
	return !start.After(w.End) && !end.Before(w.Start)
}

// Duration is the calendar span of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Shift returns the window moved by the given number of days, duration intact.
func (w Window) Shift(days int) Window {
	return Window{
		Start: w.Start.AddDate(0, 0, days),
		End:   w.End.AddDate(0, 0, days),
	}
}

// Nights is the number of billable nights the window covers, never below one.
func (w Window) Nights() int {
	nights := int(w.Duration().Hours() / 24)
	if w.Duration() > time.Duration(nights)*24*time.Hour {
		nights++
	}
	if nights < 1 {
		nights = 1
	}
	return nights
}
