package loggen

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"socwatch/internal/client"
	"socwatch/pkg/models"
)

// HTTPSender posts logs to the API.
type HTTPSender struct {
	Client *client.Client
}

// Send implements Sender.
func (s HTTPSender) Send(ctx context.Context, log models.SecurityLog) (*models.IngestResult, error) {
	return s.Client.IngestLog(ctx, log)
}

// Pusher appends raw payloads to a queue.
type Pusher interface {
	Push(ctx context.Context, payloads ...[]byte) error
}

// QueueSender pushes logs onto the Redis log queue. Detection happens
// asynchronously, so the result is always "queued".
type QueueSender struct {
	Queue Pusher
}

// Send implements Sender.
func (s QueueSender) Send(ctx context.Context, log models.SecurityLog) (*models.IngestResult, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, permanent(errors.Wrap(err, "marshal log"))
	}
	if err := s.Queue.Push(ctx, data); err != nil {
		return nil, err
	}
	return &models.IngestResult{Status: "queued"}, nil
}

type permanentError struct{ error }

func (p permanentError) Unwrap() error { return p.error }

func permanent(err error) error { return permanentError{err} }

// IsPermanent reports errors a retry cannot fix: client-side rejections
// (4xx) and local encoding failures.
func IsPermanent(err error) bool {
	var perm permanentError
	if errors.As(err, &perm) {
		return true
	}
	var se *client.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusBadRequest && se.StatusCode < http.StatusInternalServerError
	}
	return false
}

// Replay re-sends captured JSON lines logs, spaced by interval. Timestamps
// are kept as captured. Lines that fail to decode are skipped.
func Replay(ctx context.Context, r io.Reader, s Sender, interval time.Duration) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		if ctx.Err() != nil {
			return stats, nil
		}
		var log models.SecurityLog
		if err := json.Unmarshal(sc.Bytes(), &log); err != nil {
			stats.Failed++
			continue
		}

		res, err := SendWithRetry(ctx, s, log, 3, 200*time.Millisecond)
		if err != nil {
			if ctx.Err() != nil {
				return stats, nil
			}
			stats.Failed++
		} else {
			stats.Sent++
			if res != nil && res.Status == "detected" {
				stats.Detected++
			}
		}

		if interval > 0 {
			if err := sleepCtx(ctx, interval); err != nil {
				return stats, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return stats, errors.Wrap(err, "read capture")
	}
	return stats, nil
}
