// Package guide computes the UTC query windows that bound a viewer's local
// calendar day. Program rows are stored in UTC; everything here is a pure
// read-time projection and never touches stored values.
package guide

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadDate reports a structurally malformed caller-supplied date. Callers
// surface it as a not-found response: it means a bad request, not dirty data.
var ErrBadDate = errors.New("malformed date")

// Window is an inclusive UTC range suitable for a between-query on stored
// UTC start times.
type Window struct {
	From time.Time
	To   time.Time
}

// Date is a plain calendar date, free of any zone, as a viewer picked it.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate validates a caller-supplied "YYYY-M-D" string. Exactly three
// numeric components are required; anything else fails with ErrBadDate.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrBadDate, s)
		}
		nums[i] = n
	}
	return Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}, nil
}

// Today returns the current calendar date as seen in loc.
func Today(loc *time.Location) Date {
	now := time.Now().In(loc)
	return Date{Year: now.Year(), Month: now.Month(), Day: now.Day()}
}

// DayWindow bounds the viewer's local calendar day: local midnight through
// local 23:59, each endpoint converted to UTC. On daylight-saving transition
// dates the span is the real 23- or 25-hour local day, not a fixed 24 hours.
func DayWindow(d Date, loc *time.Location) Window {
	return Window{
		From: time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).UTC(),
		To:   time.Date(d.Year, d.Month, d.Day, 23, 59, 0, 0, loc).UTC(),
	}
}

// PreviousDayWindow bounds the local calendar day before d. The shift is a
// calendar-day step taken before the midnight/23:59 boundaries are computed,
// so a DST transition between the two days cannot skew the result the way a
// naive 24-hour subtraction would.
func PreviousDayWindow(d Date, loc *time.Location) Window {
	prev := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	return DayWindow(Date{Year: prev.Year(), Month: prev.Month(), Day: prev.Day()}, loc)
}
