package metrics

import (
	"math/rand"
	"sync"
	"time"

	"socwatch/pkg/models"
)

const (
	historyLen      = 10
	latencyVariance = 10
	historyVariance = 5
	minLatency      = 5
	maxLoadFactor   = 1.5
)

// Activity is the raw load the heartbeat is derived from.
type Activity struct {
	Logs    int // recent logs, capped at 100
	Alerts  int // recent alerts, capped at 20
	Pending int // signals awaiting triage
}

// ActivityFrom caps raw counts the way the heartbeat expects them.
func ActivityFrom(logs, alerts, pending int) Activity {
	return Activity{Logs: min(logs, 100), Alerts: min(alerts, 20), Pending: pending}
}

// Synthesizer produces the realtime component heartbeat.
type Synthesizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewSynthesizer creates a synthesizer; nil rnd seeds from the clock.
func NewSynthesizer(rnd *rand.Rand) *Synthesizer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Synthesizer{rnd: rnd, now: time.Now}
}

type componentSpec struct {
	id       string
	name     string
	base     int
	load     func(Activity) int
	activity func(Activity) int
	status   func(Activity) string
}

func healthy(Activity) string { return "healthy" }

var componentSpecs = []componentSpec{
	{
		id: "1", name: "Log Collector", base: 45,
		load:     func(a Activity) int { return a.Logs },
		activity: func(a Activity) int { return a.Logs },
		status: func(a Activity) string {
			if a.Logs > 0 {
				return "healthy"
			}
			return "degraded"
		},
	},
	{
		id: "2", name: "Threat Intelligence", base: 120,
		load:     func(a Activity) int { return a.Pending },
		activity: func(a Activity) int { return a.Pending },
		status:   healthy,
	},
	{
		id: "3", name: "SIEM Engine", base: 85,
		load:     func(a Activity) int { return a.Logs + a.Pending },
		activity: func(a Activity) int { return a.Logs + a.Pending },
		status:   healthy,
	},
	{
		id: "4", name: "Alert Pipeline", base: 150,
		load:     func(a Activity) int { return a.Alerts + a.Pending*3 },
		activity: func(a Activity) int { return a.Alerts },
		status: func(a Activity) string {
			if a.Pending == 0 {
				return "healthy"
			}
			return "degraded"
		},
	},
	{
		id: "5", name: "Analytics Engine", base: 310,
		load:     func(a Activity) int { return a.Alerts },
		activity: func(a Activity) int { return a.Alerts },
		status:   healthy,
	},
	{
		id: "6", name: "Database", base: 12,
		load:     func(a Activity) int { return a.Logs + a.Alerts },
		activity: func(a Activity) int { return a.Logs + a.Alerts },
		status:   healthy,
	},
}

// Realtime builds the heartbeat payload for the given activity.
func (s *Synthesizer) Realtime(a Activity) models.RealtimeMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	components := make([]models.RealtimeComponent, 0, len(componentSpecs))
	for _, spec := range componentSpecs {
		load := spec.load(a)
		history := make([]float64, historyLen)
		latency := s.latency(spec.base, load, latencyVariance)
		for i := range history {
			history[i] = float64(s.latency(spec.base, load, historyVariance))
		}
		components = append(components, models.RealtimeComponent{
			ID:       spec.id,
			Name:     spec.name,
			Status:   spec.status(a),
			Latency:  latency,
			History:  history,
			Activity: spec.activity(a),
		})
	}

	return models.RealtimeMetrics{
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		Components: components,
		Summary: models.RealtimeSummary{
			TotalLogs:      a.Logs,
			TotalAlerts:    a.Alerts,
			PendingSignals: a.Pending,
		},
	}
}

// latency is max(5, base*min(activity/20, 1.5) + jitter) with jitter in
// [-variance, variance].
func (s *Synthesizer) latency(base, activity, variance int) int {
	load := min(float64(activity)/20, maxLoadFactor)
	jitter := s.rnd.Intn(2*variance+1) - variance
	return max(minLatency, int(float64(base)*load+float64(jitter)))
}
