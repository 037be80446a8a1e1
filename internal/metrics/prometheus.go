package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "socwatch"

// Collector holds the backend's Prometheus instruments on a private registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry        *prometheus.Registry
	logsIngested    prometheus.Counter
	logsRejected    prometheus.Counter
	signalsDetected *prometheus.CounterVec
	alertsCreated   *prometheus.CounterVec
	pendingSignals  prometheus.Gauge
	sinkFailures    prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector registers the instruments plus Go and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		logsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_ingested_total",
			Help:      "Security logs accepted for analysis.",
		}),
		logsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_rejected_total",
			Help:      "Security log payloads that failed validation.",
		}),
		signalsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_detected_total",
			Help:      "Detection signals by type.",
		}, []string{"type"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts produced by triage, by severity.",
		}, []string{"severity"}),
		pendingSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_signals",
			Help:      "Signals waiting for triage.",
		}),
		sinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_sink_failures_total",
			Help:      "Failed alert fan-out writes.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.logsIngested,
		c.logsRejected,
		c.signalsDetected,
		c.alertsCreated,
		c.pendingSignals,
		c.sinkFailures,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) LogIngested() {
	if c == nil {
		return
	}
	c.logsIngested.Inc()
}

func (c *Collector) LogRejected() {
	if c == nil {
		return
	}
	c.logsRejected.Inc()
}

func (c *Collector) SignalDetected(signalType string) {
	if c == nil {
		return
	}
	c.signalsDetected.WithLabelValues(signalType).Inc()
}

func (c *Collector) AlertCreated(severity string) {
	if c == nil {
		return
	}
	c.alertsCreated.WithLabelValues(severity).Inc()
}

func (c *Collector) SetPendingSignals(n int) {
	if c == nil {
		return
	}
	c.pendingSignals.Set(float64(n))
}

func (c *Collector) SinkFailed() {
	if c == nil {
		return
	}
	c.sinkFailures.Inc()
}

// Middleware records request counts and latency labelled by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
