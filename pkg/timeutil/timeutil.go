// Package timeutil provides calendar utilities for the progression engine.
// Streaks and quarterly counters are defined over UTC calendar days and
// quarters, so all helpers normalize to UTC before comparing.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns the start of the UTC calendar day containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay returns true if a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// DaysBetween returns the number of whole calendar days from a to b.
// The result is negative if b is before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// IsNextDay returns true if b falls exactly one calendar day after a.
func IsNextDay(a, b time.Time) bool {
	return DaysBetween(a, b) == 1
}

// Quarter returns the quarter label for t in "YYYY-Qn" format, e.g. "2024-Q1".
func Quarter(t time.Time) string {
	u := t.UTC()
	q := (int(u.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", u.Year(), q)
}

// QuarterStart returns the first instant of the quarter containing t.
func QuarterStart(t time.Time) time.Time {
	u := t.UTC()
	startMonth := time.Month(((int(u.Month())-1)/3)*3 + 1)
	return time.Date(u.Year(), startMonth, 1, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats a time as a date string (YYYY-MM-DD) in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
