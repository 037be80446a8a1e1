package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"socwatch/internal/view"
	"socwatch/pkg/models"
)

// ErrStatus marks a non-2xx API response.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the status of a failed API call.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Config configures the API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// Client talks to the SOC API.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
}

// AlertQuery narrows GET /alerts.
type AlertQuery struct {
	Severity string
	Limit    int
}

// New creates an API client. A zero timeout means no client timeout.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, errors.Wrapf(err, "invalid api base URL %q", base)
	}
	return &Client{
		baseURL: base,
		headers: cfg.Headers,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Alerts fetches backend alert records.
func (c *Client) Alerts(ctx context.Context, q AlertQuery) ([]models.Alert, error) {
	params := url.Values{}
	if q.Severity != "" {
		params.Set("severity", q.Severity)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/alerts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out []models.Alert
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAlertViews fetches alerts and converts them for display.
func (c *Client) FetchAlertViews(ctx context.Context, q AlertQuery) ([]view.Alert, error) {
	records, err := c.Alerts(ctx, q)
	if err != nil {
		return nil, err
	}
	return view.TransformAll(records)
}

// Alert fetches one alert by id.
func (c *Client) Alert(ctx context.Context, id string) (*models.Alert, error) {
	var out models.Alert
	if err := c.do(ctx, http.MethodGet, "/alerts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics fetches aggregate counts.
func (c *Client) Metrics(ctx context.Context) (*models.MetricsSummary, error) {
	var out models.MetricsSummary
	if err := c.do(ctx, http.MethodGet, "/metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RealtimeMetrics fetches the heartbeat feed.
func (c *Client) RealtimeMetrics(ctx context.Context) (*models.RealtimeMetrics, error) {
	var out models.RealtimeMetrics
	if err := c.do(ctx, http.MethodGet, "/metrics/realtime", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the backend.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IngestLog submits one security log.
func (c *Client) IngestLog(ctx context.Context, log models.SecurityLog) (*models.IngestResult, error) {
	var out models.IngestResult
	if err := c.do(ctx, http.MethodPost, "/logs", log, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat asks the assistant.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	var out models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}
