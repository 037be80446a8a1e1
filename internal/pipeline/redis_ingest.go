package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"socwatch/internal/logger"
	"socwatch/internal/transform/securitylog"
)

// Popper pops one raw payload; nil payload with nil error means the wait
// timed out.
type Popper interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// RedisIngestPipeline drains a Redis log queue into the ingest path.
type RedisIngestPipeline struct {
	consumer Popper
	ingestor *Ingestor
	workers  int
}

// NewRedisIngestPipeline creates the queue pipeline.
func NewRedisIngestPipeline(consumer Popper, ingestor *Ingestor, workers int) *RedisIngestPipeline {
	if workers <= 0 {
		workers = 4
	}
	return &RedisIngestPipeline{consumer: consumer, ingestor: ingestor, workers: workers}
}

// Run reads until ctx is done, then waits for in-flight payloads.
func (p *RedisIngestPipeline) Run(ctx context.Context) error {
	logger.Infof("Redis log queue pipeline started (%d workers)", p.workers)

	msgCh := make(chan []byte, p.workers*4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workerLoop(msgCh)
		}()
	}

	wg.Wait()
	return ctx.Err()
}

// Close releases the consumer.
func (p *RedisIngestPipeline) Close() error {
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

func (p *RedisIngestPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop redis message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if payload == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (p *RedisIngestPipeline) workerLoop(in <-chan []byte) {
	for payload := range in {
		if _, err := p.ingestor.IngestPayload(payload); err != nil {
			if errors.Is(err, securitylog.ErrInvalidLog) {
				logger.Warnf("Dropping invalid queued log: %v", err)
				continue
			}
			logger.Errorf("Failed to ingest queued log: %v", err)
		}
	}
}
