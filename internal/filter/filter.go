package filter

import (
	"strings"

	"socwatch/internal/view"
)

// Criteria holds the active alert filters. Zero fields are inactive.
type Criteria struct {
	Severity view.Severity
	Status   view.Status
	Query    string
}

// Active reports whether any filter is set.
func (c Criteria) Active() bool {
	return c.Severity != "" || c.Status != "" || strings.TrimSpace(c.Query) != ""
}

// Match reports whether a passes every active filter.
func (c Criteria) Match(a view.Alert) bool {
	if c.Severity != "" && a.Severity != c.Severity {
		return false
	}
	if c.Status != "" && a.Status != c.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(c.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{a.Title, a.User, a.Asset, a.Description} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns the matching alerts in their original order.
func Apply(alerts []view.Alert, c Criteria) []view.Alert {
	out := make([]view.Alert, 0, len(alerts))
	for _, a := range alerts {
		if c.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

var severityCycle = []view.Severity{"", view.SeverityCritical, view.SeverityHigh, view.SeverityMedium, view.SeverityLow}

var statusCycle = []view.Status{"", view.StatusOpen, view.StatusInvestigating, view.StatusResolved}

// NextSeverity advances none, critical, high, medium, low, none.
func NextSeverity(s view.Severity) view.Severity {
	return next(severityCycle, s)
}

// NextStatus advances none, open, investigating, resolved, none.
func NextStatus(s view.Status) view.Status {
	return next(statusCycle, s)
}

func next[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

// HighPriority keeps critical and high alerts.
func HighPriority(alerts []view.Alert) []view.Alert {
	out := make([]view.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Severity == view.SeverityCritical || a.Severity == view.SeverityHigh {
			out = append(out, a)
		}
	}
	return out
}
