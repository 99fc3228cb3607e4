package common

import "time"

// Day truncates a timestamp to midnight UTC. All daily bars are keyed
// by this normalized form so two bars on the same calendar day always
// collide regardless of the source timestamp.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Yesterday returns the most recent completed UTC calendar day.
// Today's bar reflects an in-progress trading day and is never fetched.
func Yesterday() time.Time {
	return Day(time.Now().UTC()).AddDate(0, 0, -1)
}

// DaysBetween returns the number of whole days from a to b (both
// normalized to midnight UTC). Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
