package storage

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"socwatch/internal/logger"
	"socwatch/pkg/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Persister keeps alerts across restarts.
type Persister interface {
	SaveAlert(ctx context.Context, alert models.Alert) error
	LoadAlerts(ctx context.Context) ([]models.Alert, error)
	Clear(ctx context.Context) error
	Close() error
}

// Config configures the store.
type Config struct {
	MaxLogs   int
	Persister Persister
}

// Store holds logs, signals and alerts in memory.
type Store struct {
	mu        sync.RWMutex
	maxLogs   int
	logs      []models.SecurityLog
	signals   []*models.DetectionSignal
	alerts    []models.Alert
	persister Persister
}

// New creates a store. A nil persister keeps alerts in memory only.
func New(cfg Config) *Store {
	if cfg.MaxLogs <= 0 {
		cfg.MaxLogs = 1000
	}
	return &Store{
		maxLogs:   cfg.MaxLogs,
		persister: cfg.Persister,
	}
}

// Load restores persisted alerts.
func (s *Store) Load(ctx context.Context) (int, error) {
	if s.persister == nil {
		return 0, nil
	}
	alerts, err := s.persister.LoadAlerts(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "load persisted alerts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts[:0], alerts...)
	return len(alerts), nil
}

// AddLog records an ingested log, keeping only the newest maxLogs.
func (s *Store) AddLog(log models.SecurityLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, log)
	if len(s.logs) > s.maxLogs {
		s.logs = append([]models.SecurityLog(nil), s.logs[len(s.logs)-s.maxLogs:]...)
	}
}

// RecentLogs returns up to limit newest logs, oldest first.
func (s *Store) RecentLogs(limit int) []models.SecurityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.logs, limit)
}

// LogsForUser returns up to limit newest logs for one user.
func (s *Store) LogsForUser(user string, limit int) []models.SecurityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SecurityLog
	for _, l := range s.logs {
		if l.User == user {
			out = append(out, l)
		}
	}
	return tail(out, limit)
}

// LogCount returns the number of retained logs.
func (s *Store) LogCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

// AddSignal queues a detection signal for triage.
func (s *Store) AddSignal(sig models.DetectionSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig.Processed = false
	s.signals = append(s.signals, &sig)
}

// PendingSignals returns copies of the unprocessed signals in arrival order.
func (s *Store) PendingSignals() []models.DetectionSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DetectionSignal
	for _, sig := range s.signals {
		if !sig.Processed {
			out = append(out, *sig)
		}
	}
	return out
}

// SignalCount returns the number of signals ever queued.
func (s *Store) SignalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals)
}

// MarkSignalProcessed flags a signal as handled.
func (s *Store) MarkSignalProcessed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range s.signals {
		if sig.SignalID == id {
			sig.Processed = true
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "signal %s", id)
}

// AddAlert stores an alert and persists it. The alert stays in memory even
// when persistence fails.
func (s *Store) AddAlert(ctx context.Context, alert models.Alert) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.SaveAlert(ctx, alert); err != nil {
		return errors.Wrapf(err, "persist alert %s", alert.AlertID)
	}
	return nil
}

// Alerts returns every alert, oldest first.
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Alert(nil), s.alerts...)
}

// AlertsBySeverity returns the alerts of one severity, oldest first.
func (s *Store) AlertsBySeverity(sev models.Severity) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Alert
	for _, a := range s.alerts {
		if a.Severity == string(sev) {
			out = append(out, a)
		}
	}
	return out
}

// Alert looks up an alert by id.
func (s *Store) Alert(id string) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.AlertID == id {
			return a, nil
		}
	}
	return models.Alert{}, errors.Wrapf(ErrNotFound, "alert %s", id)
}

// Metrics summarises counts and the last ten alerts.
func (s *Store) Metrics() models.MetricsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySeverity := make(map[string]int, len(models.Severities))
	for _, sev := range models.Severities {
		bySeverity[string(sev)] = 0
	}
	for _, a := range s.alerts {
		if _, ok := bySeverity[a.Severity]; ok {
			bySeverity[a.Severity]++
		}
	}

	return models.MetricsSummary{
		TotalLogs:        len(s.logs),
		TotalAlerts:      len(s.alerts),
		AlertsBySeverity: bySeverity,
		RecentActivity:   tail(s.alerts, 10),
	}
}

// Clear drops all data, including persisted alerts.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.logs = nil
	s.signals = nil
	s.alerts = nil
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Clear(ctx); err != nil {
		return errors.Wrap(err, "clear persisted alerts")
	}
	logger.Infof("Store cleared")
	return nil
}

// Close releases the persister.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

func tail[T any](items []T, limit int) []T {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	return append([]T(nil), items[len(items)-limit:]...)
}
