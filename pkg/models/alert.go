package models

// Alert is the alert record stored by the backend and served on /alerts.
type Alert struct {
	AlertID        string           `json:"alert_id"`
	Timestamp      string           `json:"timestamp"`
	User           string           `json:"user"`
	ThreatType     string           `json:"threat_type"`
	Severity       string           `json:"severity"`
	Explanation    string           `json:"explanation"`
	Recommendation string           `json:"recommendation"`
	AgentTrace     []string         `json:"agent_trace"`
	RawEvents      []map[string]any `json:"raw_events"`
	Metadata       map[string]any   `json:"metadata"`
}
