package loggen

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/internal/client"
	"socwatch/pkg/models"
)

type scriptedSender struct {
	mu    sync.Mutex
	errs  []error
	calls int
	logs  []models.SecurityLog
}

func (s *scriptedSender) Send(ctx context.Context, log models.SecurityLog) (*models.IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	s.logs = append(s.logs, log)
	status := "ok"
	if log.EventType == models.EventNewCountryLogin {
		status = "detected"
	}
	return &models.IngestResult{Status: status}, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestNextUsesPools(t *testing.T) {
	g := New(Config{Rand: rand.New(rand.NewSource(42))}, nil)
	g.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	safe := map[string]bool{}
	for _, l := range SafeLocations {
		safe[l] = true
	}

	seen := map[models.EventType]int{}
	for i := 0; i < 2000; i++ {
		log := g.Next()
		seen[log.EventType]++
		assert.Equal(t, "2024-05-01T10:00:00Z", log.Timestamp)
		assert.Contains(t, Users, log.User)
		assert.Contains(t, Assets, log.Asset)
		assert.Len(t, strings.Split(log.IP, "."), 4)
		if log.EventType == models.EventSuccessfulLogin || log.EventType == models.EventDataDownload {
			assert.True(t, safe[log.Location], log.Location)
		}
	}

	for _, w := range eventWeights {
		assert.Positive(t, seen[w.value], w.value)
	}
	// Half of all events are benign logins.
	assert.InDelta(t, 1000, seen[models.EventSuccessfulLogin], 150)
}

func TestRunStopsAtCount(t *testing.T) {
	s := &scriptedSender{}
	g := New(Config{Count: 5, Rand: rand.New(rand.NewSource(1))}, s)
	g.sleep = noSleep

	stats, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Sent)
	assert.Equal(t, 5, s.calls)
	assert.Len(t, s.logs, 5)
}

func TestRunRetriesTransientErrors(t *testing.T) {
	s := &scriptedSender{errs: []error{errors.New("connection refused"), errors.New("connection refused")}}
	g := New(Config{Count: 1, Rand: rand.New(rand.NewSource(1))}, s)
	g.sleep = noSleep

	stats, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 3, s.calls)
}

func TestSendWithRetryPermanent(t *testing.T) {
	s := &scriptedSender{errs: []error{&client.StatusError{Method: "POST", Path: "/logs", StatusCode: http.StatusUnprocessableEntity}}}

	_, err := SendWithRetry(context.Background(), s, models.SecurityLog{User: "x"}, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 1, s.calls)
	assert.True(t, IsPermanent(err))

	assert.False(t, IsPermanent(&client.StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsPermanent(errors.New("timeout")))
}

func TestRunStopsOnCancel(t *testing.T) {
	s := &scriptedSender{}
	g := New(Config{Rand: rand.New(rand.NewSource(1))}, s)

	ctx, cancel := context.WithCancel(context.Background())
	g.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	stats, err := g.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
}

func TestHTTPSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"detected","signal_type":"BRUTE_FORCE","signal_id":"s1"}`))
	}))
	defer srv.Close()

	c, err := client.New(client.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	res, err := HTTPSender{Client: c}.Send(context.Background(), models.SecurityLog{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "BRUTE_FORCE", res.SignalType)
}

type memQueue struct{ items [][]byte }

func (q *memQueue) Push(ctx context.Context, payloads ...[]byte) error {
	q.items = append(q.items, payloads...)
	return nil
}

func TestQueueSender(t *testing.T) {
	q := &memQueue{}
	res, err := QueueSender{Queue: q}.Send(context.Background(), models.SecurityLog{User: "x", EventType: models.EventFailedLogin})
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Status)
	require.Len(t, q.items, 1)
	assert.Contains(t, string(q.items[0]), `"event_type":"failed_login"`)
}

func TestReplay(t *testing.T) {
	capture := strings.Join([]string{
		`{"user":"a","event_type":"successful_login"}`,
		`garbage`,
		`{"user":"b","event_type":"new_country_login"}`,
	}, "\n")
	s := &scriptedSender{}

	stats, err := Replay(context.Background(), strings.NewReader(capture), s, 0)
	require.NoError(t, err)
	assert.Equal(t, Stats{Sent: 2, Failed: 1, Detected: 1}, stats)
	assert.Equal(t, "b", s.logs[1].User)
}
