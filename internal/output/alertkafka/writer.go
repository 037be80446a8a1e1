package alertkafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"

	"socwatch/internal/logger"
	"socwatch/pkg/models"
)

// Config configures the Kafka writer.
type Config struct {
	Brokers []string
	Topic   string
	Timeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer produces one message per alert keyed by user, so a user's alerts
// stay on one partition.
type Writer struct {
	w       MessageWriter
	timeout time.Duration
}

// NewWriter creates a Kafka writer.
func NewWriter(cfg Config) (*Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are empty")
	}
	if cfg.Topic == "" {
		cfg.Topic = "socwatch-alerts"
	}
	kw := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}
	logger.Infof("Alert Kafka writer initialized: %v topic=%s", cfg.Brokers, cfg.Topic)
	return NewWriterWith(kw, cfg.Timeout), nil
}

// NewWriterWith wraps an existing message writer.
func NewWriterWith(w MessageWriter, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Writer{w: w, timeout: timeout}
}

// WriteAlerts writes the batch in one call.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	msgs := make([]kafka.Message, 0, len(alerts))
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		data, err := json.Marshal(alert)
		if err != nil {
			return errors.Wrapf(err, "marshal alert %s", alert.AlertID)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(alert.User),
			Value: data,
			Headers: []kafka.Header{
				{Key: "severity", Value: []byte(alert.Severity)},
				{Key: "threat_type", Value: []byte(alert.ThreatType)},
			},
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "write kafka messages")
	}
	return nil
}

// Close flushes and closes the producer.
func (w *Writer) Close() error {
	return w.w.Close()
}
