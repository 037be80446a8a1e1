package alertclickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"socwatch/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// Row is the flattened alert shape inserted into ClickHouse.
type Row struct {
	AlertID        string   `json:"alert_id"`
	Timestamp      string   `json:"timestamp"`
	User           string   `json:"user"`
	ThreatType     string   `json:"threat_type"`
	Severity       string   `json:"severity"`
	Explanation    string   `json:"explanation"`
	Recommendation string   `json:"recommendation"`
	AgentTrace     []string `json:"agent_trace"`
	SignalID       string   `json:"signal_id"`
	Asset          string   `json:"asset"`
	EventCount     int      `json:"event_count"`
	RawEvents      string   `json:"raw_events"`
	Metadata       string   `json:"metadata"`
}

// Writer sends alerts to ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, errors.New("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "alerts"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	endpoint := strings.TrimRight(cfg.URL, "/") + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// RowFrom flattens an alert. Nested evidence is stored as JSON strings.
func RowFrom(a *models.Alert) (Row, error) {
	raw, err := json.Marshal(a.RawEvents)
	if err != nil {
		return Row{}, errors.Wrap(err, "marshal raw events")
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return Row{}, errors.Wrap(err, "marshal metadata")
	}

	row := Row{
		AlertID:        a.AlertID,
		Timestamp:      a.Timestamp,
		User:           a.User,
		ThreatType:     a.ThreatType,
		Severity:       a.Severity,
		Explanation:    a.Explanation,
		Recommendation: a.Recommendation,
		AgentTrace:     a.AgentTrace,
		EventCount:     len(a.RawEvents),
		RawEvents:      string(raw),
		Metadata:       string(meta),
	}
	if row.AgentTrace == nil {
		row.AgentTrace = []string{}
	}
	if v, ok := a.Metadata["signal_id"].(string); ok {
		row.SignalID = v
	}
	if len(a.RawEvents) > 0 {
		if v, ok := a.RawEvents[0]["asset"].(string); ok {
			row.Asset = v
		}
	}
	if row.Asset == "" {
		if v, ok := a.Metadata["asset"].(string); ok {
			row.Asset = v
		}
	}
	return row, nil
}

// WriteAlerts sends a batch of alerts.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	n := 0
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		row, err := RowFrom(alert)
		if err != nil {
			return errors.Wrapf(err, "flatten alert %s", alert.AlertID)
		}
		if err := enc.Encode(row); err != nil {
			return errors.Wrap(err, "failed to marshal alert row")
		}
		n++
	}
	if n == 0 {
		return nil
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, &body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "clickhouse request failed")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return errors.Newf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
