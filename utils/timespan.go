package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// FormatError is returned when a wall-clock value can't be split into at
// least hour and minute components.
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Value, e.Reason)
}

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
// Seconds are truncated.
func ParseClock(value string) (int, error) {
	v := strings.TrimSpace(value)
	parts := strings.Split(v, ":")
	if len(parts) < 2 {
		return 0, &FormatError{Value: value, Reason: "expected HH:MM"}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, &FormatError{Value: value, Reason: "hour out of range"}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, &FormatError{Value: value, Reason: "minute out of range"}
	}
	return hour*60 + minute, nil
}

// DurationMinutes returns the length of a slot in minutes. An end before the
// start means the slot crosses midnight.
func DurationMinutes(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	if e < s {
		return (minutesPerDay - s) + e, nil
	}
	return e - s, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
