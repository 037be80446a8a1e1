package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	redis "github.com/redis/go-redis/v9"

	"socwatch/pkg/models"
)

// RedisConfig configures Redis alert persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisPersister stores alerts as JSON in a hash keyed by alert id, with a
// list preserving insertion order.
type RedisPersister struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPersister connects to Redis.
func NewRedisPersister(cfg RedisConfig) (*RedisPersister, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis alert store")
	}

	return newRedisPersister(client, cfg.KeyPrefix), nil
}

func newRedisPersister(client redis.UniversalClient, prefix string) *RedisPersister {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "socwatch"
	}
	return &RedisPersister{client: client, prefix: prefix}
}

// SaveAlert writes one alert.
func (p *RedisPersister) SaveAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "marshal alert")
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, p.alertsKey(), alert.AlertID, data)
	pipe.RPush(ctx, p.orderKey(), alert.AlertID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "write alert redis keys")
	}
	return nil
}

// LoadAlerts reads alerts in insertion order.
func (p *RedisPersister) LoadAlerts(ctx context.Context) ([]models.Alert, error) {
	ids, err := p.client.LRange(ctx, p.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read alert order")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := p.client.HMGet(ctx, p.alertsKey(), ids...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read alerts")
	}

	seen := make(map[string]struct{}, len(ids))
	alerts := make([]models.Alert, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok || raw == "" {
			continue
		}
		if _, dup := seen[ids[i]]; dup {
			continue
		}
		var alert models.Alert
		if err := json.Unmarshal([]byte(raw), &alert); err != nil {
			continue
		}
		seen[ids[i]] = struct{}{}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// Clear deletes the alert keys.
func (p *RedisPersister) Clear(ctx context.Context) error {
	if err := p.client.Del(ctx, p.alertsKey(), p.orderKey()).Err(); err != nil {
		return errors.Wrap(err, "delete alert redis keys")
	}
	return nil
}

// Close closes Redis resources.
func (p *RedisPersister) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *RedisPersister) alertsKey() string {
	return p.prefix + ":alerts"
}

func (p *RedisPersister) orderKey() string {
	return p.prefix + ":alerts:order"
}
