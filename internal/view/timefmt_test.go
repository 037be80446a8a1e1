package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string {
		return now.Add(-d).Format(time.RFC3339)
	}

	assert.Equal(t, "just now", FormatTimestamp(at(45*time.Second), now))
	assert.Equal(t, "1 min ago", FormatTimestamp(at(time.Minute), now))
	assert.Equal(t, "5 mins ago", FormatTimestamp(at(5*time.Minute), now))
	assert.Equal(t, "1 hour ago", FormatTimestamp(at(90*time.Minute), now))
	assert.Equal(t, "5 hours ago", FormatTimestamp(at(5*time.Hour), now))
	assert.Equal(t, "3 days ago", FormatTimestamp(at(3*24*time.Hour), now))
	assert.Equal(t, "just now", FormatTimestamp(at(-time.Hour), now))
}

func TestFormatTimestampOldDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	old := time.Date(2025, 1, 5, 12, 0, 0, 0, time.Local)
	assert.Equal(t, "1/5/2025", FormatTimestamp(old.Format(time.RFC3339), now))
}

func TestFormatTimestampUnparseable(t *testing.T) {
	now := time.Now()
	for _, raw := range []string{"", "yesterday", "2 min ago", "2025-13-45T99:00:00Z"} {
		assert.Equal(t, raw, FormatTimestamp(raw, now))
	}
}

func TestParseTimestampWithoutZone(t *testing.T) {
	ts, ok := ParseTimestamp("2025-03-10T12:00:00.123456")
	assert.True(t, ok)
	assert.Equal(t, time.Local, ts.Location())
	assert.Equal(t, 123456000, ts.Nanosecond())
}
