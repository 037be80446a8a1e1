package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"socwatch/internal/logger"
	"socwatch/internal/metrics"
	"socwatch/internal/storage"
	"socwatch/internal/triage"
	"socwatch/pkg/models"
)

// Analyzer runs triage over one signal.
type Analyzer interface {
	Run(sig *models.DetectionSignal) (*triage.Result, error)
}

// ProcessorConfig wires the signal processor.
type ProcessorConfig struct {
	Store    *storage.Store
	Analyzer Analyzer
	Writer   AlertWriter
	Metrics  *metrics.Collector
	Interval time.Duration
}

// Processor periodically turns pending signals into alerts.
type Processor struct {
	store    *storage.Store
	analyzer Analyzer
	writer   AlertWriter
	metrics  *metrics.Collector
	interval time.Duration
	now      func() time.Time
	newID    func() string
}

// NewProcessor creates a processor. Interval defaults to 5s.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = triage.NewPipeline()
	}
	return &Processor{
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		writer:   cfg.Writer,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run processes pending signals every interval until ctx is done.
func (p *Processor) Run(ctx context.Context) error {
	logger.Infof("Signal processor started (interval %s)", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Signal processor stopped")
			return ctx.Err()
		case <-ticker.C:
			p.ProcessPending(ctx)
		}
	}
}

// ProcessPending triages every pending signal once and returns the number of
// alerts created. A signal whose alert could not be built stays pending.
func (p *Processor) ProcessPending(ctx context.Context) int {
	pending := p.store.PendingSignals()
	if len(pending) == 0 {
		return 0
	}

	var created []*models.Alert
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		sig := pending[i]

		res, err := p.analyzer.Run(&sig)
		if err != nil {
			logger.Errorf("Triage failed for signal %s: %v", sig.SignalID, err)
			continue
		}

		alert := BuildAlert(sig, res, p.newID(), p.now())
		if err := p.store.AddAlert(ctx, alert); err != nil {
			logger.Errorf("Failed to persist alert %s: %v", alert.AlertID, err)
		}
		if err := p.store.MarkSignalProcessed(sig.SignalID); err != nil {
			logger.Warnf("Failed to mark signal processed: %v", err)
		}
		p.metrics.AlertCreated(alert.Severity)
		logger.Infof("Alert %s created from signal %s", alert.AlertID, sig.SignalID)
		created = append(created, &alert)
	}

	p.metrics.SetPendingSignals(len(p.store.PendingSignals()))

	if p.writer != nil && len(created) > 0 {
		if err := p.writer.WriteAlerts(created); err != nil {
			p.metrics.SinkFailed()
			logger.Errorf("Failed to write alerts: %v", err)
		}
	}
	return len(created)
}

// BuildAlert assembles the alert record for a triaged signal. Signal
// metadata wins over the processor's own keys.
func BuildAlert(sig models.DetectionSignal, res *triage.Result, id string, now time.Time) models.Alert {
	raw := make([]map[string]any, 0, len(sig.Events))
	for _, e := range sig.Events {
		raw = append(raw, e.AsMap())
	}

	meta := map[string]any{
		"signal_id":     sig.SignalID,
		"agent_success": res.Success,
	}
	if res.Technique.ID != "" {
		meta["technique"] = res.Technique.ID
		meta["tactic"] = res.Technique.Tactic
	}
	if res.Reportable {
		meta["compliance_frameworks"] = res.Frameworks
	}
	for k, v := range sig.Metadata {
		meta[k] = v
	}

	explanation := res.Explanation
	if explanation == "" {
		explanation = "No explanation available"
	}

	return models.Alert{
		AlertID:        id,
		Timestamp:      now.UTC().Format(time.RFC3339Nano),
		User:           sig.User,
		ThreatType:     string(sig.SignalType),
		Severity:       string(sig.Severity),
		Explanation:    explanation,
		Recommendation: res.Recommendation,
		AgentTrace:     append([]string(nil), res.AgentTrace...),
		RawEvents:      raw,
		Metadata:       meta,
	}
}
