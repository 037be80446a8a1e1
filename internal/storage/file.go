package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"socwatch/pkg/models"
)

// FilePersister keeps alerts in an alerts.json document.
type FilePersister struct {
	mu     sync.Mutex
	path   string
	alerts []models.Alert
}

// NewFilePersister stores alerts.json in dataDir.
func NewFilePersister(dataDir string) (*FilePersister, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}
	return &FilePersister{path: filepath.Join(dataDir, "alerts.json")}, nil
}

// Path returns the document location.
func (p *FilePersister) Path() string {
	return p.path
}

// LoadAlerts reads the document. A missing file is empty.
func (p *FilePersister) LoadAlerts(ctx context.Context) ([]models.Alert, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.alerts = nil
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", p.path)
	}

	var alerts []models.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, errors.Wrapf(err, "parse %s", p.path)
	}
	p.alerts = alerts
	return append([]models.Alert(nil), alerts...), nil
}

// SaveAlert appends the alert and rewrites the document.
func (p *FilePersister) SaveAlert(ctx context.Context, alert models.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return p.flush()
}

// Clear empties the document.
func (p *FilePersister) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = nil
	return p.flush()
}

// Close is a no-op; every write is flushed.
func (p *FilePersister) Close() error {
	return nil
}

func (p *FilePersister) flush() error {
	alerts := p.alerts
	if alerts == nil {
		alerts = []models.Alert{}
	}
	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal alerts")
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return errors.Wrapf(err, "replace %s", p.path)
	}
	return nil
}
