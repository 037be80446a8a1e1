package models

// SignalType is the detection rule that produced a signal.
type SignalType string

const (
	SignalBruteForce      SignalType = "BRUTE_FORCE"
	SignalSuspiciousLogin SignalType = "SUSPICIOUS_LOGIN"
	SignalInsiderThreat   SignalType = "INSIDER_THREAT"
	SignalAnomalousAccess SignalType = "ANOMALOUS_ACCESS"
)

// DetectionSignal is emitted by the detection engine and consumed by triage.
type DetectionSignal struct {
	SignalID   string         `json:"signal_id"`
	SignalType SignalType     `json:"signal_type"`
	User       string         `json:"user"`
	Severity   Severity       `json:"severity"`
	Events     []SecurityLog  `json:"events"`
	DetectedAt string         `json:"detected_at"`
	Metadata   map[string]any `json:"metadata"`
	Processed  bool           `json:"processed,omitempty"`
}

// RuleMatch annotates a log matched by a loaded rule.
type RuleMatch struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
}
