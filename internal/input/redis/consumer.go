package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	redis "github.com/redis/go-redis/v9"
)

// Config configures the Redis log queue.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
}

// Consumer wraps a Redis list used as a security log queue.
type Consumer struct {
	client       redis.UniversalClient
	key          string
	blockTimeout time.Duration
}

// NewConsumer creates a Redis consumer for list-based queues.
func NewConsumer(cfg Config) (*Consumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewConsumerWithClient(client, cfg.Key, cfg.BlockTimeout)
}

// NewConsumerWithClient wraps an existing client.
func NewConsumerWithClient(client redis.UniversalClient, key string, blockTimeout time.Duration) (*Consumer, error) {
	if key == "" {
		return nil, errors.New("redis key is required")
	}
	if blockTimeout == 0 {
		blockTimeout = 5 * time.Second
	}
	return &Consumer{
		client:       client,
		key:          key,
		blockTimeout: blockTimeout,
	}, nil
}

// Pop pops one payload from the head of the list. It returns nil, nil when
// the block timeout passes with the list empty.
func (c *Consumer) Pop(ctx context.Context) ([]byte, error) {
	res, err := c.client.BLPop(ctx, c.blockTimeout, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "blpop %s", c.key)
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Push appends payloads to the tail of the list.
func (c *Consumer) Push(ctx context.Context, payloads ...[]byte) error {
	if len(payloads) == 0 {
		return nil
	}
	values := make([]interface{}, len(payloads))
	for i, p := range payloads {
		values[i] = p
	}
	if err := c.client.RPush(ctx, c.key, values...).Err(); err != nil {
		return errors.Wrapf(err, "rpush %s", c.key)
	}
	return nil
}

// Len returns the queue depth.
func (c *Consumer) Len(ctx context.Context) (int64, error) {
	n, err := c.client.LLen(ctx, c.key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "llen %s", c.key)
	}
	return n, nil
}

// Key returns the list key.
func (c *Consumer) Key() string {
	return c.key
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	return c.client.Close()
}
