package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"socwatch/internal/view"
)

func sample() []view.Alert {
	return []view.Alert{
		{ID: "1", Severity: view.SeverityCritical, Status: view.StatusOpen, Title: "Insider Threat", User: "sarah.chen@company.com", Asset: "customer-db"},
		{ID: "2", Severity: view.SeverityHigh, Status: view.StatusInvestigating, Title: "Brute Force", User: "john.doe@company.com", Asset: "api-gateway"},
		{ID: "3", Severity: view.SeverityCritical, Status: view.StatusResolved, Title: "Insider Threat", User: "bob.smith@company.com", Asset: "payment-gateway"},
		{ID: "4", Severity: view.SeverityLow, Status: view.StatusOpen, Title: "Suspicious Login", User: "emma.wilson@company.com", Asset: "internal-wiki", Description: "Login from Tor Exit Node"},
		{ID: "5", Severity: view.SeverityMedium, Status: view.StatusOpen, Title: "Anomalous Access", User: "mike.johnson@company.com", Asset: "admin-panel"},
	}
}

func ids(alerts []view.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ID)
	}
	return out
}

func TestApplySeverityPreservesOrder(t *testing.T) {
	got := Apply(sample(), Criteria{Severity: view.SeverityCritical})
	assert.Equal(t, []string{"1", "3"}, ids(got))
}

func TestApplyNoFilters(t *testing.T) {
	got := Apply(sample(), Criteria{})
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(got))
	assert.False(t, Criteria{Query: "  "}.Active())
}

func TestApplyComposesWithAnd(t *testing.T) {
	got := Apply(sample(), Criteria{Severity: view.SeverityCritical, Query: "insider"})
	assert.Equal(t, []string{"1", "3"}, ids(got))

	got = Apply(sample(), Criteria{Severity: view.SeverityCritical, Status: view.StatusOpen, Query: "insider"})
	assert.Equal(t, []string{"1"}, ids(got))

	got = Apply(sample(), Criteria{Severity: view.SeverityHigh, Query: "insider"})
	assert.Empty(t, got)
}

func TestApplySearchFields(t *testing.T) {
	assert.Equal(t, []string{"2"}, ids(Apply(sample(), Criteria{Query: "JOHN.DOE"})))
	assert.Equal(t, []string{"3"}, ids(Apply(sample(), Criteria{Query: "payment"})))
	assert.Equal(t, []string{"4"}, ids(Apply(sample(), Criteria{Query: "tor exit"})))
}

func TestCycles(t *testing.T) {
	s := view.Severity("")
	var seen []view.Severity
	for i := 0; i < 5; i++ {
		s = NextSeverity(s)
		seen = append(seen, s)
	}
	assert.Equal(t, []view.Severity{view.SeverityCritical, view.SeverityHigh, view.SeverityMedium, view.SeverityLow, ""}, seen)

	st := view.Status("")
	var states []view.Status
	for i := 0; i < 4; i++ {
		st = NextStatus(st)
		states = append(states, st)
	}
	assert.Equal(t, []view.Status{view.StatusOpen, view.StatusInvestigating, view.StatusResolved, ""}, states)
}

func TestHighPriority(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, ids(HighPriority(sample())))
}
