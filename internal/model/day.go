package model

import "time"

// Weekday names as stored in schedule records. The system predates any
// localization layer and keeps the original Indonesian names as the internal
// enumeration; index matches time.Weekday (Sunday = 0).
var dayNames = [7]string{
	"Minggu", // Sunday
	"Senin",
	"Selasa",
	"Rabu",
	"Kamis",
	"Jumat",
	"Sabtu",
}

// DayName returns the canonical name for a weekday.
func DayName(d time.Weekday) string {
	return dayNames[int(d)%7]
}

// DayNumber maps a canonical day name back to its time.Weekday ordinal.
// The second return is false for names outside the enumeration.
func DayNumber(name string) (int, bool) {
	for i, n := range dayNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// ValidDay reports whether name is one of the 7 canonical weekday names.
func ValidDay(name string) bool {
	_, ok := DayNumber(name)
	return ok
}

// ValidClockTime reports whether s is a well-formed HH:MM 24-hour time.
func ValidClockTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}

// ClockTime formats t as the fixed-width HH:MM used everywhere schedules
// compare times. Lexicographic order on this format is chronological order.
func ClockTime(t time.Time) string {
	return t.Format("15:04")
}
