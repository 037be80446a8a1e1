package models

// MetricsSummary is served on /metrics.
type MetricsSummary struct {
	TotalLogs        int            `json:"total_logs"`
	TotalAlerts      int            `json:"total_alerts"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	RecentActivity   []Alert        `json:"recent_activity"`
}

// RealtimeComponent is one backend subsystem in the heartbeat feed.
type RealtimeComponent struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Latency  int       `json:"latency"`
	History  []float64 `json:"history"`
	Activity int       `json:"activity"`
}

// RealtimeSummary aggregates counts behind the heartbeat feed.
type RealtimeSummary struct {
	TotalLogs      int `json:"total_logs"`
	TotalAlerts    int `json:"total_alerts"`
	PendingSignals int `json:"pending_signals"`
}

// RealtimeMetrics is served on /metrics/realtime.
type RealtimeMetrics struct {
	Timestamp  string              `json:"timestamp"`
	Components []RealtimeComponent `json:"components"`
	Summary    RealtimeSummary     `json:"summary"`
}

// Health is served on /health.
type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp"`
}
