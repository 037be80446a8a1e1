package alerthttp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"

	"socwatch/internal/logger"
	"socwatch/pkg/models"
)

// Writer sends alerts to a remote HTTP endpoint. Consecutive failures open a
// circuit breaker so a dead endpoint is not hammered every processor tick.
type Writer struct {
	url     string
	headers map[string]string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// Config configures the HTTP writer.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// NewWriter creates an HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, errors.New("http alert URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alerthttp",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Alert HTTP breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Writer{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}, nil
}

// WriteAlerts posts a batch of alerts as a JSON array.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(alerts)
	if err != nil {
		return errors.Wrap(err, "failed to marshal alerts")
	}

	_, err = w.breaker.Execute(func() (interface{}, error) {
		return nil, w.post(body)
	})
	return err
}

func (w *Writer) post(body []byte) error {
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "http request failed")
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Newf("http request failed with status %s", resp.Status)
	}
	return nil
}

// State reports the breaker state.
func (w *Writer) State() gobreaker.State {
	return w.breaker.State()
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
