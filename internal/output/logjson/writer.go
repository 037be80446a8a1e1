package logjson

import (
	"github.com/cockroachdb/errors"

	"socwatch/internal/logger"
	"socwatch/internal/output/jsonl"
	"socwatch/pkg/models"
)

// Writer captures ingested logs to a JSON lines file. The file can be
// replayed with `socwatch generate --replay`.
type Writer struct {
	out *jsonl.File[models.SecurityLog]
}

// NewWriter opens path for appending.
func NewWriter(path string) (*Writer, error) {
	out, err := jsonl.Open[models.SecurityLog](path)
	if err != nil {
		return nil, errors.Wrap(err, "open log capture")
	}
	logger.Infof("Log capture writer initialized: %s", path)
	return &Writer{out: out}, nil
}

// WriteLogs appends a batch of logs.
func (w *Writer) WriteLogs(logs []models.SecurityLog) error {
	if _, err := w.out.Append(logs, nil); err != nil {
		return errors.Wrap(err, "capture logs")
	}
	return nil
}

// Close closes the capture file.
func (w *Writer) Close() error {
	return w.out.Close()
}
