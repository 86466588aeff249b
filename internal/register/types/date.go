package types

import (
	"strings"
	"time"
)

// ParseDate accepts an RFC 3339 timestamp or a bare calendar date.
// Bare dates are read in loc (UTC when nil).
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ValidTimeOfDay reports whether s is a 24h HH:MM wall-clock time.
func ValidTimeOfDay(s string) bool {
	if len(s) != len(TimeOfDayLayout) {
		return false
	}
	_, err := time.Parse(TimeOfDayLayout, s)
	return err == nil
}
