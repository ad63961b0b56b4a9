// Package timeutil provides the time bucketing used by activity accrual:
// whole-minute uptime buckets for voice sessions and calendar-day boundaries
// for the diminishing-returns reset.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// MinuteBucket returns the whole-minute bucket of t, i.e. floor(unix/60).
// Bucketing both ends of a session with the same truncation keeps uptime
// consistent across reconnects and restarts.
func MinuteBucket(t time.Time) int64 {
	return t.Unix() / 60
}

// MinutesBetween returns the number of whole-minute buckets between start and
// end, clamped at zero. A connect and disconnect inside the same minute is
// zero minutes, never negative.
func MinutesBetween(start, end time.Time) int64 {
	minutes := MinuteBucket(end) - MinuteBucket(start)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// SameDay reports whether a and b fall on the same calendar day in loc.
// The day boundary resets the diminishing-returns curve.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	al, bl := a.In(loc), b.In(loc)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	tl := t.In(loc)
	return time.Date(tl.Year(), tl.Month(), tl.Day(), 0, 0, 0, 0, loc)
}
