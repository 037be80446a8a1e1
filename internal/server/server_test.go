package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/internal/client"
	"socwatch/internal/detection"
	"socwatch/internal/metrics"
	"socwatch/internal/pipeline"
	"socwatch/internal/storage"
	"socwatch/pkg/models"
)

type fixture struct {
	store   *storage.Store
	engine  *detection.Engine
	srv     *httptest.Server
	client  *client.Client
	cleared bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  storage.New(storage.Config{}),
		engine: detection.NewEngine(detection.Config{}),
	}
	s := New(Config{
		Store:    f.store,
		Ingestor: pipeline.NewIngestor(pipeline.IngestConfig{Store: f.store, Detector: f.engine}),
		Realtime: metrics.NewSynthesizer(rand.New(rand.NewSource(1))),
		Metrics:  metrics.NewCollector(),
		OnClear:  func() { f.cleared = true },
		QueueDepth: func(ctx context.Context) (int64, error) {
			return 7, nil
		},
	})
	s.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	f.srv = httptest.NewServer(s.Routes())
	t.Cleanup(f.srv.Close)

	c, err := client.New(client.Config{BaseURL: f.srv.URL})
	require.NoError(t, err)
	f.client = c
	return f
}

func (f *fixture) addAlerts(t *testing.T, alerts ...models.Alert) {
	t.Helper()
	for _, a := range alerts {
		require.NoError(t, f.store.AddAlert(context.Background(), a))
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	h, err := f.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, ServiceName, h.Service)
	assert.Equal(t, "2024-05-01T10:00:00Z", h.Timestamp)
}

func TestIngestAndDetect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.client.IngestLog(ctx, models.SecurityLog{
		User:      "mallory@company.com",
		EventType: models.EventSuccessfulLogin,
		IP:        "5.6.7.8",
		Location:  "North Korea",
		Asset:     "vpn",
	})
	require.NoError(t, err)
	assert.Equal(t, "detected", res.Status)
	assert.Equal(t, "SUSPICIOUS_LOGIN", res.SignalType)

	res, err = f.client.IngestLog(ctx, models.SecurityLog{
		User:      "alice@company.com",
		EventType: models.EventSuccessfulLogin,
		Location:  "Germany",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	assert.Empty(t, res.SignalID)

	var signals struct {
		Pending    []models.DetectionSignal `json:"pending"`
		Total      int                      `json:"total"`
		QueueDepth int                      `json:"queue_depth"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/debug/signals", &signals))
	assert.Len(t, signals.Pending, 1)
	assert.Equal(t, 1, signals.Total)
	assert.Equal(t, 7, signals.QueueDepth)

	var logs []models.SecurityLog
	assert.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/debug/logs?limit=1", &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "alice@company.com", logs[0].User)

	var userLogs []models.SecurityLog
	assert.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/debug/logs?user=mallory@company.com", &userLogs))
	require.Len(t, userLogs, 1)
	assert.Equal(t, "North Korea", userLogs[0].Location)
}

func TestIngestRejectsInvalidLog(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.srv.URL+"/logs", "application/json", strings.NewReader(`{"user":"x","event_type":"nope"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Detail, "event_type")
}

func TestAlertsQuery(t *testing.T) {
	f := newFixture(t)
	f.addAlerts(t,
		models.Alert{AlertID: "a1", Severity: "HIGH"},
		models.Alert{AlertID: "a2", Severity: "CRITICAL"},
		models.Alert{AlertID: "a3", Severity: "HIGH"},
	)
	ctx := context.Background()

	all, err := f.client.Alerts(ctx, client.AlertQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	high, err := f.client.Alerts(ctx, client.AlertQuery{Severity: "high"})
	require.NoError(t, err)
	require.Len(t, high, 2)
	assert.Equal(t, "a1", high[0].AlertID)

	last, err := f.client.Alerts(ctx, client.AlertQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "a2", last[0].AlertID)
	assert.Equal(t, "a3", last[1].AlertID)

	var detail errorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.srv.URL+"/alerts?severity=urgent", &detail))
	assert.Equal(t, "Invalid severity level", detail.Detail)

	var unlimited []models.Alert
	assert.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/alerts?limit=0", &unlimited))
	assert.Len(t, unlimited, 3)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.srv.URL+"/alerts?limit=-1", &detail))
	assert.Equal(t, "Invalid limit", detail.Detail)

	var none []models.Alert
	assert.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/alerts?severity=LOW", &none))
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAlertByID(t *testing.T) {
	f := newFixture(t)
	f.addAlerts(t, models.Alert{AlertID: "a1", Severity: "LOW", User: "bob"})

	a, err := f.client.Alert(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "bob", a.User)

	var detail errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, f.srv.URL+"/alerts/missing", &detail))
	assert.Equal(t, "Alert not found", detail.Detail)
}

func TestMetricsEndpoints(t *testing.T) {
	f := newFixture(t)
	f.addAlerts(t, models.Alert{AlertID: "a1", Severity: "CRITICAL"})
	f.store.AddLog(models.SecurityLog{User: "x"})
	ctx := context.Background()

	m, err := f.client.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalLogs)
	assert.Equal(t, 1, m.AlertsBySeverity["CRITICAL"])

	rt, err := f.client.RealtimeMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, rt.Components, 6)
	assert.Equal(t, 1, rt.Summary.TotalLogs)
	assert.Equal(t, 1, rt.Summary.TotalAlerts)

	resp, err := http.Get(f.srv.URL + "/metrics/prometheus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	f.addAlerts(t, models.Alert{AlertID: "a1", Severity: "CRITICAL", ThreatType: "INSIDER_THREAT", User: "carol"})

	resp, err := f.client.Chat(context.Background(), models.ChatRequest{QuickAction: models.QuickSystemStatus})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "ELEVATED RISK")

	resp, err = f.client.Chat(context.Background(), models.ChatRequest{Message: "explain the latest one"})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "INSIDER THREAT")
}

func TestDebugClear(t *testing.T) {
	f := newFixture(t)
	f.addAlerts(t, models.Alert{AlertID: "a1"})
	f.store.AddLog(models.SecurityLog{User: "x"})

	resp, err := http.Post(f.srv.URL+"/debug/clear", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "cleared", body["status"])
	assert.Empty(t, f.store.Alerts())
	assert.Zero(t, f.store.LogCount())
	assert.True(t, f.cleared)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/alerts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
