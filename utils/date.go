package utils

import "time"

// DayOf truncates a timestamp to its calendar day in the same location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
