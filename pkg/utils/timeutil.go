package utils

import (
	"time"
)

// Layouts used for dates shown to the viewer and sent to the backend.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// LoadLocation resolves a configured timezone name. An empty name or
// "Local" yields the process local zone; unknown names fall back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDate returns the calendar date of t in loc, as "YYYY-MM-DD".
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// FormatTimestamp renders t in loc for the "last updated" display.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateTimeLayout)
}
