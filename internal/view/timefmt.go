package view

import (
	"fmt"
	"strings"
	"time"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses ISO-8601 timestamps. Values without a zone are
// read as local time.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders raw relative to now. Unparseable input is
// returned unchanged.
func FormatTimestamp(raw string, now time.Time) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return FormatAge(t, now)
}

// FormatAge renders the age of t relative to now.
func FormatAge(t, now time.Time) string {
	mins := int(now.Sub(t) / time.Minute)
	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return plural(mins, "min")
	case mins < 24*60:
		return plural(mins/60, "hour")
	case mins < 7*24*60:
		return plural(mins/(24*60), "day")
	default:
		return t.In(time.Local).Format("1/2/2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
