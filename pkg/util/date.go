package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for local wall clock times, most specific first.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
	"2006-01-02",
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseLocalDateTime parses a wall clock time without zone. The result carries
// the UTC location but must be read as local time.
func ParseLocalDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date time %q", s)
}

// ParseBirth accepts either a zoned timestamp (RFC3339 or unix seconds) or a
// local wall clock time. It returns the wall clock and, when the input carried
// one, the offset east of UTC in minutes.
func ParseBirth(s string) (wall time.Time, offsetMinutes int, zoned bool, err error) {
	if t, ok := ParseTime(strings.TrimSpace(s)); ok {
		_, off := t.Zone()
		wall = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		return wall, off / 60, true, nil
	}
	wall, err = ParseLocalDateTime(s)
	if err != nil {
		return time.Time{}, 0, false, err
	}
	return wall, 0, false, nil
}

