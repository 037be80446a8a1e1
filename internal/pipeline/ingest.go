package pipeline

import (
	"time"

	"socwatch/internal/logger"
	"socwatch/internal/metrics"
	"socwatch/internal/storage"
	"socwatch/internal/transform/securitylog"
	"socwatch/pkg/models"
)

// Detector turns one log into an optional detection signal.
type Detector interface {
	Analyze(log models.SecurityLog) *models.DetectionSignal
}

// IngestConfig wires the ingest path.
type IngestConfig struct {
	Store    *storage.Store
	Detector Detector
	Capture  LogWriter
	Metrics  *metrics.Collector
}

// Ingestor is the single path every log takes, whether it arrives over HTTP
// or from the Redis queue: store, capture, detect, queue the signal.
type Ingestor struct {
	store    *storage.Store
	detector Detector
	capture  LogWriter
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewIngestor creates an ingestor.
func NewIngestor(cfg IngestConfig) *Ingestor {
	return &Ingestor{
		store:    cfg.Store,
		detector: cfg.Detector,
		capture:  cfg.Capture,
		metrics:  cfg.Metrics,
		now:      time.Now,
	}
}

// IngestPayload parses a JSON payload and ingests it.
func (i *Ingestor) IngestPayload(data []byte) (*models.IngestResult, error) {
	log, err := securitylog.Parse(data, i.now())
	if err != nil {
		i.metrics.LogRejected()
		return nil, err
	}
	return i.ingest(*log), nil
}

func (i *Ingestor) ingest(log models.SecurityLog) *models.IngestResult {
	i.store.AddLog(log)
	i.metrics.LogIngested()

	if i.capture != nil {
		if err := i.capture.WriteLogs([]models.SecurityLog{log}); err != nil {
			logger.Warnf("Failed to capture log: %v", err)
		}
	}

	if i.detector == nil {
		return &models.IngestResult{Status: "ok"}
	}
	sig := i.detector.Analyze(log)
	if sig == nil {
		return &models.IngestResult{Status: "ok"}
	}

	i.store.AddSignal(*sig)
	i.metrics.SignalDetected(string(sig.SignalType))
	i.metrics.SetPendingSignals(len(i.store.PendingSignals()))
	logger.Infof("Detection: %s for %s (signal %s)", sig.SignalType, sig.User, sig.SignalID)

	return &models.IngestResult{
		Status:     "detected",
		SignalType: string(sig.SignalType),
		SignalID:   sig.SignalID,
	}
}
