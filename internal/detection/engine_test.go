package detection

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/pkg/models"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func failed(user string, at time.Time, ip string) models.SecurityLog {
	return models.SecurityLog{
		Timestamp: at.Format(time.RFC3339Nano),
		User:      user,
		EventType: models.EventFailedLogin,
		IP:        ip,
		Location:  "Canada",
		Asset:     "api-gateway",
	}
}

func newTestEngine(cfg Config) *Engine {
	e := NewEngine(cfg)
	e.now = func() time.Time { return base }
	return e
}

func TestBruteForceFiresAfterThreshold(t *testing.T) {
	e := newTestEngine(Config{})

	for i := 0; i < 5; i++ {
		sig := e.Analyze(failed("bob", base.Add(time.Duration(i)*10*time.Second), fmt.Sprintf("10.0.0.%d", i%2)))
		require.Nil(t, sig, "attempt %d", i+1)
	}

	sig := e.Analyze(failed("bob", base.Add(50*time.Second), "10.0.0.9"))
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalBruteForce, sig.SignalType)
	assert.Equal(t, models.SeverityHigh, sig.Severity)
	assert.Equal(t, "bob", sig.User)
	assert.Len(t, sig.Events, 6)
	assert.Equal(t, 6, sig.Metadata["failed_attempts"])
	assert.Equal(t, "2 minutes", sig.Metadata["time_window"])
	assert.Equal(t, []string{"10.0.0.0", "10.0.0.1", "10.0.0.9"}, sig.Metadata["ips"])
	assert.NotEmpty(t, sig.SignalID)
	assert.Equal(t, "2025-03-10T12:00:00Z", sig.DetectedAt)
}

func TestBruteForceWindowExpires(t *testing.T) {
	e := newTestEngine(Config{})

	for i := 0; i < 5; i++ {
		require.Nil(t, e.Analyze(failed("bob", base.Add(time.Duration(i)*time.Second), "10.0.0.1")))
	}
	// Three minutes later the earlier attempts fall outside the window.
	assert.Nil(t, e.Analyze(failed("bob", base.Add(3*time.Minute), "10.0.0.1")))
}

func TestBruteForceIsPerUser(t *testing.T) {
	e := newTestEngine(Config{})
	for i := 0; i < 3; i++ {
		require.Nil(t, e.Analyze(failed("alice", base, "10.0.0.1")))
		require.Nil(t, e.Analyze(failed("bob", base, "10.0.0.1")))
	}
}

func TestBruteForceHistoryIsBounded(t *testing.T) {
	e := newTestEngine(Config{FailedHistory: 3, BruteForceThreshold: 3})
	for i := 0; i < 10; i++ {
		assert.Nil(t, e.Analyze(failed("bob", base, "10.0.0.1")))
	}
}

func TestSuspiciousLogin(t *testing.T) {
	e := newTestEngine(Config{})

	log := models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "emma", EventType: models.EventNewCountryLogin, IP: "198.51.100.7", Location: "Tor Exit Node"}
	sig := e.Analyze(log)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalSuspiciousLogin, sig.SignalType)
	assert.Equal(t, models.SeverityHigh, sig.Severity)
	assert.Equal(t, "Tor Exit Node", sig.Metadata["location"])
	assert.Equal(t, "198.51.100.7", sig.Metadata["ip"])
	assert.Equal(t, "Geographic anomaly", sig.Metadata["risk_reason"])

	log.Location = "Germany"
	assert.Nil(t, e.Analyze(log))

	log.Location = "Russia"
	log.EventType = models.EventFailedLogin
	assert.Nil(t, e.Analyze(log))
}

func TestInsiderThreat(t *testing.T) {
	e := newTestEngine(Config{})

	download := models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "mike", EventType: models.EventDataDownload, Asset: "employee-records"}
	require.Nil(t, e.Analyze(download))

	esc := models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "mike", EventType: models.EventPrivilegeEscalation, Asset: "admin-panel"}
	require.Nil(t, e.Analyze(esc))
	require.Nil(t, e.Analyze(esc))

	sig := e.Analyze(download)
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalInsiderThreat, sig.SignalType)
	assert.Equal(t, models.SeverityCritical, sig.Severity)
	require.Len(t, sig.Events, 3)
	assert.Equal(t, models.EventDataDownload, sig.Events[2].EventType)
	assert.Equal(t, 2, sig.Metadata["escalation_count"])
	assert.Equal(t, "employee-records", sig.Metadata["asset"])

	other := download
	other.User = "someone-else"
	assert.Nil(t, e.Analyze(other))
}

func TestEscalationHistoryIsBounded(t *testing.T) {
	e := newTestEngine(Config{EscalationHistory: 2})
	esc := models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "mike", EventType: models.EventPrivilegeEscalation}
	for i := 0; i < 5; i++ {
		e.Analyze(esc)
	}
	sig := e.Analyze(models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "mike", EventType: models.EventDataDownload})
	require.NotNil(t, sig)
	assert.Equal(t, 2, sig.Metadata["escalation_count"])
}

type stubRules struct{ matches []models.RuleMatch }

func (s stubRules) Apply(models.SecurityLog) []models.RuleMatch { return s.matches }

func TestRuleMatchesBecomeAnomalousAccess(t *testing.T) {
	e := newTestEngine(Config{Rules: stubRules{matches: []models.RuleMatch{
		{ID: "r1", Name: "Low rule", Severity: "low"},
		{ID: "r2", Name: "Admin panel access", Severity: "high", Tactic: "privilege-escalation", Technique: "T1078"},
	}}})

	sig := e.Analyze(models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "bob", EventType: models.EventSuccessfulLogin, Location: "Canada", Asset: "admin-panel"})
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalAnomalousAccess, sig.SignalType)
	assert.Equal(t, models.SeverityHigh, sig.Severity)
	assert.Equal(t, "r2", sig.Metadata["rule_id"])
	assert.Equal(t, "T1078", sig.Metadata["technique"])
	assert.Equal(t, 2, sig.Metadata["match_count"])
}

func TestBuiltInDetectorsWinOverRules(t *testing.T) {
	e := newTestEngine(Config{Rules: stubRules{matches: []models.RuleMatch{{ID: "r1", Severity: "critical"}}}})
	sig := e.Analyze(models.SecurityLog{Timestamp: base.Format(time.RFC3339), User: "bob", EventType: models.EventSuccessfulLogin, Location: "Iran"})
	require.NotNil(t, sig)
	assert.Equal(t, models.SignalSuspiciousLogin, sig.SignalType)
}

func TestRuleSeverity(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, RuleSeverity("critical"))
	assert.Equal(t, models.SeverityLow, RuleSeverity("informational"))
}
