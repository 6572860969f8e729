package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a 24-hour "HH:MM" wall-clock time
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// NextDailyRun returns the first instant strictly after now at hour:minute
// wall-clock time in loc. On days where that wall time does not exist or
// repeats, time.Date's normalization applies.
func NextDailyRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// ParseDate parses a date or timestamp in the formats seen in exported
// spreadsheets. Values without a zone are read in loc.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t, nil
	}

	formats := []string{
		"2006-01-02",
		"01/02/2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
	}
	for _, format := range formats {
		if date, err := time.ParseInLocation(format, dateStr, loc); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseBool reads the yes/no spellings used in spreadsheets
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "active":
		return true
	default:
		return false
	}
}
