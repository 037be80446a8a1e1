package pipeline

import (
	"github.com/cockroachdb/errors"

	"socwatch/pkg/models"
)

// AlertWriter writes alert outputs.
type AlertWriter interface {
	WriteAlerts(alerts []*models.Alert) error
	Close() error
}

// MultiAlertWriter fans alerts out to every writer. A failing writer does
// not stop the others; the errors are combined.
type MultiAlertWriter []AlertWriter

// WriteAlerts writes to every writer.
func (m MultiAlertWriter) WriteAlerts(alerts []*models.Alert) error {
	var errs error
	for _, w := range m {
		if err := w.WriteAlerts(alerts); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Close closes every writer.
func (m MultiAlertWriter) Close() error {
	var errs error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}
