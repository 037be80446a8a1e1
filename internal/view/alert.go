package view

import (
	"fmt"
	"time"
)

// Severity is the dashboard severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists severities from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities, critical highest. Unknown values rank zero.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Status is the analyst workflow state of an alert.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
)

// Statuses lists the workflow states in order.
var Statuses = []Status{StatusOpen, StatusInvestigating, StatusResolved}

// Next returns the following workflow state. Resolved has none.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusOpen:
		return StatusInvestigating, true
	case StatusInvestigating:
		return StatusResolved, true
	default:
		return s, false
	}
}

// CanTransition reports whether to directly follows s.
func (s Status) CanTransition(to Status) bool {
	next, ok := s.Next()
	return ok && next == to
}

// TraceStep is one agent contribution to an alert.
type TraceStep struct {
	Agent  string
	Action string
	Offset time.Duration
}

// OffsetLabel renders the step offset as "+150ms".
func (t TraceStep) OffsetLabel() string {
	return fmt.Sprintf("+%dms", t.Offset.Milliseconds())
}

// Alert is the alert as shown by the dashboard.
type Alert struct {
	ID                 string
	Severity           Severity
	Title              string
	Description        string
	Timestamp          string
	DetectedAt         time.Time
	Status             Status
	Confidence         int
	User               string
	Asset              string
	RecommendedActions []string
	Trace              []TraceStep
}

// Health is the health of a realtime component.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthDown     Health = "down"
)

// ParseHealth maps a backend status string, unknown values read as down.
func ParseHealth(s string) Health {
	switch Health(s) {
	case HealthHealthy, HealthDegraded:
		return Health(s)
	default:
		return HealthDown
	}
}

// Component is a realtime component in the heartbeat view.
type Component struct {
	ID       string
	Name     string
	Health   Health
	Latency  int
	History  []float64
	Activity int
}
