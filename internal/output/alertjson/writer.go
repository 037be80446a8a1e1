package alertjson

import (
	"github.com/cockroachdb/errors"

	"socwatch/internal/logger"
	"socwatch/internal/output/jsonl"
	"socwatch/pkg/models"
)

// Writer outputs alerts to a JSON lines file.
type Writer struct {
	out *jsonl.File[*models.Alert]
}

// NewWriter opens path for appending, one alert per line.
func NewWriter(path string) (*Writer, error) {
	out, err := jsonl.Open[*models.Alert](path)
	if err != nil {
		return nil, errors.Wrap(err, "open alert output")
	}
	logger.Infof("Alert JSON writer initialized: %s", path)
	return &Writer{out: out}, nil
}

// WriteAlerts appends a batch of alerts. Nil entries are skipped.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	if _, err := w.out.Append(alerts, func(a *models.Alert) bool { return a == nil }); err != nil {
		return errors.Wrap(err, "write alerts")
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	return w.out.Close()
}
