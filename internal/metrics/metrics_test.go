package metrics

import (
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealtimeIdleBackend(t *testing.T) {
	s := NewSynthesizer(rand.New(rand.NewSource(7)))
	m := s.Realtime(Activity{})

	require.Len(t, m.Components, 6)
	names := make([]string, 0, len(m.Components))
	for _, c := range m.Components {
		names = append(names, c.Name)
		assert.GreaterOrEqual(t, c.Latency, minLatency, c.Name)
		assert.LessOrEqual(t, c.Latency, latencyVariance, c.Name)
		require.Len(t, c.History, historyLen)
		for _, h := range c.History {
			assert.Equal(t, float64(minLatency), h)
		}
	}
	assert.Equal(t, []string{"Log Collector", "Threat Intelligence", "SIEM Engine", "Alert Pipeline", "Analytics Engine", "Database"}, names)
	assert.Equal(t, "degraded", m.Components[0].Status)
	assert.Equal(t, "healthy", m.Components[3].Status)
	assert.NotEmpty(t, m.Timestamp)
}

func TestRealtimeUnderLoad(t *testing.T) {
	s := NewSynthesizer(rand.New(rand.NewSource(7)))
	a := ActivityFrom(500, 40, 2)
	assert.Equal(t, Activity{Logs: 100, Alerts: 20, Pending: 2}, a)

	m := s.Realtime(a)
	byName := map[string]int{}
	for i, c := range m.Components {
		byName[c.Name] = i
	}

	collector := m.Components[byName["Log Collector"]]
	assert.Equal(t, "healthy", collector.Status)
	assert.Equal(t, 100, collector.Activity)
	// 45 * 1.5 = 67.5 with jitter in [-10, 10]
	assert.InDelta(t, 67, collector.Latency, 11)

	pipeline := m.Components[byName["Alert Pipeline"]]
	assert.Equal(t, "degraded", pipeline.Status)
	assert.Equal(t, 20, pipeline.Activity)

	siem := m.Components[byName["SIEM Engine"]]
	assert.Equal(t, 102, siem.Activity)

	db := m.Components[byName["Database"]]
	assert.Equal(t, 120, db.Activity)
	for _, h := range db.History {
		assert.InDelta(t, 18, h, 6)
	}

	assert.Equal(t, 100, m.Summary.TotalLogs)
	assert.Equal(t, 20, m.Summary.TotalAlerts)
	assert.Equal(t, 2, m.Summary.PendingSignals)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.LogIngested()
	c.LogRejected()
	c.SignalDetected("BRUTE_FORCE")
	c.AlertCreated("HIGH")
	c.SetPendingSignals(3)
	c.SinkFailed()

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCollectorCountsAndExposes(t *testing.T) {
	c := NewCollector()
	c.LogIngested()
	c.LogIngested()
	c.SignalDetected("BRUTE_FORCE")
	c.AlertCreated("CRITICAL")
	c.SetPendingSignals(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.logsIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signalsDetected.WithLabelValues("BRUTE_FORCE")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.pendingSignals))

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/alerts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Method(http.MethodGet, "/metrics/prometheus", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts/abc", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/alerts/{id}", "404")))

	srv := httptest.NewServer(r)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics/prometheus")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "socwatch_logs_ingested_total 2")
	assert.Contains(t, string(body), `socwatch_alerts_created_total{severity="CRITICAL"} 1`)
}
