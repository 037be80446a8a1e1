// Package loggen produces synthetic security logs that exercise every
// detector: mostly benign logins with occasional failures, privilege
// escalations, downloads and logins from new countries.
package loggen

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cockroachdb/errors"

	"socwatch/internal/logger"
	"socwatch/pkg/models"
)

var (
	Users = []string{
		"john.doe@company.com",
		"sarah.chen@company.com",
		"mike.johnson@company.com",
		"alice.kumar@company.com",
		"bob.smith@company.com",
		"emma.wilson@company.com",
	}
	Assets = []string{
		"customer-db",
		"internal-wiki",
		"payment-gateway",
		"employee-records",
		"api-gateway",
		"admin-panel",
	}
	SafeLocations       = []string{"United States", "Canada", "United Kingdom", "Germany", "Singapore"}
	SuspiciousLocations = []string{"Russia", "North Korea", "Unknown", "Tor Exit Node", "Romania"}
)

type weighted[T any] struct {
	value  T
	weight float64
}

var eventWeights = []weighted[models.EventType]{
	{models.EventSuccessfulLogin, 0.50},
	{models.EventFailedLogin, 0.25},
	{models.EventPrivilegeEscalation, 0.05},
	{models.EventDataDownload, 0.15},
	{models.EventNewCountryLogin, 0.05},
}

// Risky events draw from every location, leaning towards suspicious ones.
var riskyLocationWeights = []weighted[string]{
	{"United States", 0.3},
	{"Canada", 0.3},
	{"United Kingdom", 0.3},
	{"Germany", 0.3},
	{"Singapore", 0.3},
	{"Russia", 0.4},
	{"North Korea", 0.4},
	{"Unknown", 0.4},
	{"Tor Exit Node", 0.3},
	{"Romania", 0.3},
}

// Sender delivers one log to the backend.
type Sender interface {
	Send(ctx context.Context, log models.SecurityLog) (*models.IngestResult, error)
}

// Config configures the generator.
type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	// Count stops the generator after that many delivered logs; 0 runs
	// until the context ends.
	Count      int
	MaxRetries uint64
	Rand       *rand.Rand
}

// Stats summarises a run.
type Stats struct {
	Sent     int
	Failed   int
	Detected int
}

// Generator emits synthetic logs at random intervals.
type Generator struct {
	cfg    Config
	sender Sender
	mu     sync.Mutex
	rnd    *rand.Rand
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a generator.
func New(cfg Config, sender Sender) *Generator {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval + 2*time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		cfg:    cfg,
		sender: sender,
		rnd:    rnd,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Next builds one synthetic log.
func (g *Generator) Next() models.SecurityLog {
	g.mu.Lock()
	defer g.mu.Unlock()

	event := pick(g.rnd, eventWeights)
	user := Users[g.rnd.Intn(len(Users))]
	asset := Assets[g.rnd.Intn(len(Assets))]

	var location string
	switch event {
	case models.EventFailedLogin, models.EventNewCountryLogin, models.EventPrivilegeEscalation:
		location = pick(g.rnd, riskyLocationWeights)
	default:
		location = SafeLocations[g.rnd.Intn(len(SafeLocations))]
	}

	return models.SecurityLog{
		Timestamp: g.now().UTC().Format(time.RFC3339Nano),
		User:      user,
		EventType: event,
		IP:        g.ip(),
		Location:  location,
		Asset:     asset,
	}
}

func (g *Generator) ip() string {
	return fmt.Sprintf("%d.%d.%d.%d", 1+g.rnd.Intn(255), 1+g.rnd.Intn(255), 1+g.rnd.Intn(255), 1+g.rnd.Intn(255))
}

func (g *Generator) interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	span := g.cfg.MaxInterval - g.cfg.MinInterval
	if span <= 0 {
		return g.cfg.MinInterval
	}
	return g.cfg.MinInterval + time.Duration(g.rnd.Int63n(int64(span)+1))
}

// Run sends logs until Count is reached or ctx ends. A log that still fails
// after retries is counted and skipped.
func (g *Generator) Run(ctx context.Context) (Stats, error) {
	logger.Infof("Log generator started (interval %s-%s)", g.cfg.MinInterval, g.cfg.MaxInterval)

	var stats Stats
	for {
		if g.cfg.Count > 0 && stats.Sent >= g.cfg.Count {
			return stats, nil
		}
		if ctx.Err() != nil {
			return stats, nil
		}

		log := g.Next()
		res, err := g.deliver(ctx, log)
		switch {
		case err != nil && ctx.Err() != nil:
			return stats, nil
		case err != nil:
			stats.Failed++
			logger.Warnf("Failed to send log: %v", err)
		default:
			stats.Sent++
			logger.Infof("[%04d] %-20s | %-30s | %s", stats.Sent, log.EventType, log.User, log.Location)
			if res != nil && res.Status == "detected" {
				stats.Detected++
				logger.Infof("Detection: %s (signal %s)", res.SignalType, res.SignalID)
			}
		}

		if g.cfg.Count > 0 && stats.Sent >= g.cfg.Count {
			return stats, nil
		}
		if err := g.sleep(ctx, g.interval()); err != nil {
			return stats, nil
		}
	}
}

func (g *Generator) deliver(ctx context.Context, log models.SecurityLog) (*models.IngestResult, error) {
	return SendWithRetry(ctx, g.sender, log, g.cfg.MaxRetries, 200*time.Millisecond)
}

// SendWithRetry sends with exponential backoff. Permanent errors (see
// IsPermanent) are not retried.
func SendWithRetry(ctx context.Context, s Sender, log models.SecurityLog, maxRetries uint64, initial time.Duration) (*models.IngestResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initial
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	var res *models.IngestResult
	op := func() error {
		r, err := s.Send(ctx, log)
		if err != nil {
			if IsPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		res = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debugf("Retrying log delivery in %s: %v", wait, err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx), notify)
	if err != nil {
		return nil, errors.Wrap(err, "deliver log")
	}
	return res, nil
}

func pick[T any](rnd *rand.Rand, choices []weighted[T]) T {
	var total float64
	for _, c := range choices {
		total += c.weight
	}
	r := rnd.Float64() * total
	for _, c := range choices {
		if r < c.weight {
			return c.value
		}
		r -= c.weight
	}
	return choices[len(choices)-1].value
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
