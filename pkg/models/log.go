package models

// EventType is the kind of security event carried by a log.
type EventType string

const (
	EventSuccessfulLogin     EventType = "successful_login"
	EventFailedLogin         EventType = "failed_login"
	EventPrivilegeEscalation EventType = "privilege_escalation"
	EventDataDownload        EventType = "data_download"
	EventNewCountryLogin     EventType = "new_country_login"
)

// EventTypes lists the accepted event types.
var EventTypes = []EventType{
	EventSuccessfulLogin,
	EventFailedLogin,
	EventPrivilegeEscalation,
	EventDataDownload,
	EventNewCountryLogin,
}

// Valid reports whether the event type is known.
func (e EventType) Valid() bool {
	for _, t := range EventTypes {
		if t == e {
			return true
		}
	}
	return false
}

// SecurityLog is one ingested security event.
type SecurityLog struct {
	Timestamp string    `json:"timestamp"`
	User      string    `json:"user"`
	EventType EventType `json:"event_type"`
	IP        string    `json:"ip"`
	Location  string    `json:"location"`
	Asset     string    `json:"asset"`
}

// AsMap converts the log into a raw event map for alert evidence.
func (l SecurityLog) AsMap() map[string]any {
	return map[string]any{
		"timestamp":  l.Timestamp,
		"user":       l.User,
		"event_type": string(l.EventType),
		"ip":         l.IP,
		"location":   l.Location,
		"asset":      l.Asset,
	}
}

// IngestResult is the response of POST /logs.
type IngestResult struct {
	Status     string `json:"status"`
	SignalType string `json:"signal_type,omitempty"`
	SignalID   string `json:"signal_id,omitempty"`
}
