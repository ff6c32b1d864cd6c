package session

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time within a day, minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a "HH:MM" window boundary.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return t, nil
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60
}

// InWindow reports whether now's wall-clock time falls inside the inclusive
// interval [start, end]. Pure: identical inputs always yield the same result.
func InWindow(start, end TimeOfDay, now time.Time) bool {
	s := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return start.seconds() <= s && s <= end.seconds()
}
