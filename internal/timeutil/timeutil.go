// Package timeutil holds the small time helpers shared by policy checks,
// repositories and reports.
package timeutil

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// SameLocalDate reports whether a and b fall on the same calendar day in loc.
func SameLocalDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// MinutesOfDay returns the minutes elapsed since local midnight.
func MinutesOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// ClampInterval intersects [start, end) with [winStart, winEnd) and returns
// the overlapping duration, zero if they do not intersect.
func ClampInterval(start, end, winStart, winEnd time.Time) time.Duration {
	if start.Before(winStart) {
		start = winStart
	}
	if end.After(winEnd) {
		end = winEnd
	}
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}
