package alertnats

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"

	"socwatch/internal/logger"
	"socwatch/pkg/models"
)

// Config configures the NATS publisher.
type Config struct {
	URL     string
	Subject string
}

// Publisher is the subset of *nats.Conn the writer needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
	Drain() error
	Close()
}

// Writer publishes each alert as one JSON message.
type Writer struct {
	conn    Publisher
	subject string
}

// NewWriter connects to NATS.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("socwatch-alerts"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", cfg.URL)
	}
	logger.Infof("Alert NATS writer initialized: %s subject=%s", cfg.URL, cfg.Subject)
	return NewWriterWithConn(conn, cfg.Subject), nil
}

// NewWriterWithConn wraps an existing connection.
func NewWriterWithConn(conn Publisher, subject string) *Writer {
	if subject == "" {
		subject = "socwatch.alerts"
	}
	return &Writer{conn: conn, subject: subject}
}

// WriteAlerts publishes the batch and flushes.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		data, err := json.Marshal(alert)
		if err != nil {
			return errors.Wrapf(err, "marshal alert %s", alert.AlertID)
		}
		if err := w.conn.Publish(w.subject, data); err != nil {
			return errors.Wrapf(err, "publish alert %s", alert.AlertID)
		}
	}
	if err := w.conn.Flush(); err != nil {
		return errors.Wrap(err, "flush nats")
	}
	return nil
}

// Close drains and closes the connection.
func (w *Writer) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Drain()
	w.conn.Close()
	return err
}
