package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/pkg/models"
)

func testAlert(id string, sev models.Severity) models.Alert {
	return models.Alert{
		AlertID:    id,
		Timestamp:  "2024-05-01T10:00:00Z",
		User:       "alice@company.com",
		ThreatType: "BRUTE_FORCE",
		Severity:   string(sev),
		AgentTrace: []string{"Detection Agent"},
		Metadata:   map[string]any{"signal_id": "sig-" + id},
	}
}

func TestStoreCapsLogs(t *testing.T) {
	s := New(Config{MaxLogs: 3})
	for i := 0; i < 5; i++ {
		s.AddLog(models.SecurityLog{User: fmt.Sprintf("u%d", i)})
	}

	assert.Equal(t, 3, s.LogCount())
	logs := s.RecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "u2", logs[0].User)
	assert.Equal(t, "u4", logs[2].User)

	last := s.RecentLogs(2)
	require.Len(t, last, 2)
	assert.Equal(t, "u3", last[0].User)
}

func TestStoreLogsForUser(t *testing.T) {
	s := New(Config{})
	s.AddLog(models.SecurityLog{User: "a", IP: "1"})
	s.AddLog(models.SecurityLog{User: "b", IP: "2"})
	s.AddLog(models.SecurityLog{User: "a", IP: "3"})

	logs := s.LogsForUser("a", 10)
	require.Len(t, logs, 2)
	assert.Equal(t, "1", logs[0].IP)
	assert.Equal(t, "3", logs[1].IP)
}

func TestStoreSignals(t *testing.T) {
	s := New(Config{})
	s.AddSignal(models.DetectionSignal{SignalID: "s1"})
	s.AddSignal(models.DetectionSignal{SignalID: "s2"})

	require.Len(t, s.PendingSignals(), 2)
	require.NoError(t, s.MarkSignalProcessed("s1"))

	pending := s.PendingSignals()
	require.Len(t, pending, 1)
	assert.Equal(t, "s2", pending[0].SignalID)
	assert.Equal(t, 2, s.SignalCount())

	err := s.MarkSignalProcessed("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreAlertsAndMetrics(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})
	for i := 0; i < 12; i++ {
		sev := models.SeverityHigh
		if i%3 == 0 {
			sev = models.SeverityCritical
		}
		require.NoError(t, s.AddAlert(ctx, testAlert(fmt.Sprintf("a%d", i), sev)))
	}
	s.AddLog(models.SecurityLog{User: "x"})

	got, err := s.Alert("a5")
	require.NoError(t, err)
	assert.Equal(t, "a5", got.AlertID)

	_, err = s.Alert("nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Len(t, s.AlertsBySeverity(models.SeverityCritical), 4)

	m := s.Metrics()
	assert.Equal(t, 1, m.TotalLogs)
	assert.Equal(t, 12, m.TotalAlerts)
	assert.Equal(t, map[string]int{"LOW": 0, "MEDIUM": 0, "HIGH": 8, "CRITICAL": 4}, m.AlertsBySeverity)
	require.Len(t, m.RecentActivity, 10)
	assert.Equal(t, "a2", m.RecentActivity[0].AlertID)
	assert.Equal(t, "a11", m.RecentActivity[9].AlertID)
}

func TestStoreFilePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := NewFilePersister(dir)
	require.NoError(t, err)
	s := New(Config{Persister: p})
	require.NoError(t, s.AddAlert(ctx, testAlert("a1", models.SeverityHigh)))
	require.NoError(t, s.AddAlert(ctx, testAlert("a2", models.SeverityLow)))
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, "alerts.json"))
	require.NoError(t, err)

	p2, err := NewFilePersister(dir)
	require.NoError(t, err)
	restored := New(Config{Persister: p2})
	n, err := restored.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	alerts := restored.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "a1", alerts[0].AlertID)
	assert.Equal(t, "sig-a2", alerts[1].Metadata["signal_id"])

	require.NoError(t, restored.Clear(ctx))
	assert.Empty(t, restored.Alerts())

	data, err := os.ReadFile(p2.Path())
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestFilePersisterMissingFile(t *testing.T) {
	p, err := NewFilePersister(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)

	alerts, err := p.LoadAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestFilePersisterCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alerts.json"), []byte("{not json"), 0644))

	p, err := NewFilePersister(dir)
	require.NoError(t, err)
	s := New(Config{Persister: p})
	_, err = s.Load(context.Background())
	assert.Error(t, err)
}

func TestQuoteTable(t *testing.T) {
	q, err := quoteTable("")
	require.NoError(t, err)
	assert.Equal(t, `"alerts"`, q)

	_, err = quoteTable("alerts; drop table x")
	assert.Error(t, err)
}

func TestRedisKeys(t *testing.T) {
	p := newRedisPersister(nil, "")
	assert.Equal(t, "socwatch:alerts", p.alertsKey())
	assert.Equal(t, "socwatch:alerts:order", p.orderKey())
}
