package securitylog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"socwatch/pkg/models"
)

// ErrInvalidLog marks a payload that is not a usable security log.
var ErrInvalidLog = errors.New("invalid security log")

// Parse converts a JSON payload into a SecurityLog. Both the flat form
// {timestamp,user,event_type,ip,location,asset} and ECS-style nesting
// (user.name, event.action, source.ip, source.geo.country_name, host.name)
// are accepted. Missing timestamps default to now.
func Parse(data []byte, now time.Time) (*models.SecurityLog, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode log payload"), ErrInvalidLog)
	}
	return FromMap(raw, now)
}

// FromMap builds a SecurityLog from a decoded payload.
func FromMap(raw map[string]interface{}, now time.Time) (*models.SecurityLog, error) {
	log := &models.SecurityLog{
		Timestamp: getString(raw, "timestamp", "@timestamp", "event.created"),
		User:      getString(raw, "user", "user.name", "user.email"),
		EventType: models.EventType(getString(raw, "event_type", "event.action", "event.type")),
		IP:        getString(raw, "ip", "source.ip", "client.ip"),
		Location:  getString(raw, "location", "source.geo.country_name", "geo.country_name"),
		Asset:     getString(raw, "asset", "host.name", "destination.domain"),
	}
	if err := Normalize(log, now); err != nil {
		return nil, err
	}
	return log, nil
}

// Normalize validates log in place and rewrites its timestamp as RFC 3339 UTC.
func Normalize(log *models.SecurityLog, now time.Time) error {
	log.User = strings.TrimSpace(log.User)
	if log.User == "" {
		return errors.Mark(errors.New("user is required"), ErrInvalidLog)
	}

	log.EventType = models.EventType(strings.ToLower(strings.TrimSpace(string(log.EventType))))
	if !log.EventType.Valid() {
		return errors.Mark(errors.Newf("unknown event_type %q", log.EventType), ErrInvalidLog)
	}

	if strings.TrimSpace(log.Timestamp) == "" {
		log.Timestamp = now.UTC().Format(time.RFC3339Nano)
	} else {
		ts, ok := ParseTime(log.Timestamp)
		if !ok {
			return errors.Mark(errors.Newf("unparseable timestamp %q", log.Timestamp), ErrInvalidLog)
		}
		log.Timestamp = ts.Format(time.RFC3339Nano)
	}

	if log.Location == "" {
		log.Location = "Unknown"
	}
	return nil
}

// ParseTime reads ISO-8601 timestamps. Values without a zone are UTC.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case string:
				return val
			case fmt.Stringer:
				return val.String()
			case float64:
				if val == float64(int64(val)) {
					return fmt.Sprintf("%d", int64(val))
				}
				return fmt.Sprintf("%f", val)
			}
		}
	}
	return ""
}

// getPath resolves a literal key first, then a dotted path.
func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := root[path]; ok {
		if _, nested := v.(map[string]interface{}); !nested {
			return v, true
		}
	}
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	if _, nested := current.(map[string]interface{}); nested {
		return nil, false
	}
	return current, true
}
