// Package wallclock handles the clinic's naive local date-times. Values keep
// the local wall clock but carry the UTC location so they round-trip through
// TIMESTAMP (without time zone) columns unchanged.
package wallclock

import (
	"fmt"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = "2006-01-02 15:04:05"
	// ISOLayout is the zone-less form browsers read as local time.
	ISOLayout = "2006-01-02T15:04:05"
)

// Now returns the current local wall clock, truncated to the second.
func Now() time.Time {
	return From(time.Now())
}

// From re-expresses t's wall clock as a naive value.
func From(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d, h, mi, s, 0, time.UTC)
}

// StartOfDay truncates t to midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBounds returns [midnight, next midnight) for t's date.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns [first day, first day of next month) for t's month.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseDateTime combines a YYYY-MM-DD date with an HH:MM (or HH:MM:SS) time.
func ParseDateTime(date, clock string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := time.Parse(TimeLayout, clock)
	if err != nil {
		c, err = time.Parse("15:04:05", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", clock)
		}
	}
	return d.Add(time.Duration(c.Hour())*time.Hour +
		time.Duration(c.Minute())*time.Minute +
		time.Duration(c.Second())*time.Second), nil
}

// Format renders t without a zone suffix.
func Format(t time.Time) string {
	return t.Format(ISOLayout)
}
