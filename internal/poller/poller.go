package poller

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// FetchFunc loads one value from the backend.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is the poller state after a fetch completes.
// Data keeps the last successful value; Err holds the latest failure and
// is cleared by the next success.
type Snapshot[T any] struct {
	Data      T
	Err       error
	Loaded    bool
	UpdatedAt time.Time
	Seq       uint64
}

// Config configures a poller.
type Config struct {
	Interval time.Duration
	Now      func() time.Time
}

// Poller refetches a value on a fixed period. All state is owned by a
// single goroutine and published as snapshots.
type Poller[T any] struct {
	fetch    FetchFunc[T]
	interval time.Duration
	now      func() time.Time

	refresh chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type result[T any] struct {
	data T
	err  error
}

// New creates a poller.
func New[T any](cfg Config, fetch FetchFunc[T]) (*Poller[T], error) {
	if fetch == nil {
		return nil, errors.New("poller fetch func is nil")
	}
	if cfg.Interval <= 0 {
		return nil, errors.Newf("poller interval must be positive, got %s", cfg.Interval)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Poller[T]{
		fetch:    fetch,
		interval: cfg.Interval,
		now:      now,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start fetches immediately and then every interval. The returned channel
// is closed once the poller stops. Start may only be called once.
func (p *Poller[T]) Start(ctx context.Context) (<-chan Snapshot[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil, errors.New("poller already started")
	}
	p.started = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	out := make(chan Snapshot[T])
	go p.run(ctx, out)
	return out, nil
}

// Refresh requests an immediate extra fetch.
func (p *Poller[T]) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Stop cancels the timer and in-flight fetches. No snapshot is published
// after Stop returns.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-p.done
}

func (p *Poller[T]) run(ctx context.Context, out chan<- Snapshot[T]) {
	defer close(p.done)
	defer close(out)

	results := make(chan result[T])
	launch := func() {
		go func() {
			data, err := p.fetch(ctx)
			select {
			case results <- result[T]{data: data, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var state Snapshot[T]
	launch()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			launch()
		case <-p.refresh:
			launch()
		case r := <-results:
			if ctx.Err() != nil {
				return
			}
			state = apply(state, r, p.now())
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}
		}
	}
}

func apply[T any](s Snapshot[T], r result[T], now time.Time) Snapshot[T] {
	s.Seq++
	if r.err != nil {
		s.Err = r.err
		return s
	}
	s.Data = r.data
	s.Err = nil
	s.Loaded = true
	s.UpdatedAt = now
	return s
}
