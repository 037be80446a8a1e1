package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"socwatch/pkg/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// PostgresConfig configures Postgres alert persistence.
type PostgresConfig struct {
	DSN   string
	Table string
}

// PostgresPersister stores alerts as jsonb rows.
type PostgresPersister struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresPersister connects and creates the alert table if needed.
func NewPostgresPersister(ctx context.Context, cfg PostgresConfig) (*PostgresPersister, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	table, err := quoteTable(cfg.Table)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "create postgres pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	p := &PostgresPersister{pool: pool, table: table}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func quoteTable(name string) (string, error) {
	if name == "" {
		name = "alerts"
	}
	if !tableNamePattern.MatchString(name) {
		return "", errors.Newf("invalid postgres table name %q", name)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

func (p *PostgresPersister) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq        BIGSERIAL PRIMARY KEY,
			alert_id   TEXT NOT NULL UNIQUE,
			severity   TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			payload    JSONB NOT NULL
		)`, p.table))
	if err != nil {
		return errors.Wrap(err, "create alert table")
	}
	return nil
}

// SaveAlert upserts one alert.
func (p *PostgresPersister) SaveAlert(ctx context.Context, alert models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "marshal alert")
	}
	_, err = p.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (alert_id, severity, payload)
		VALUES ($1,$2,$3)
		ON CONFLICT (alert_id) DO UPDATE SET severity=EXCLUDED.severity, payload=EXCLUDED.payload`, p.table),
		alert.AlertID, alert.Severity, payload,
	)
	if err != nil {
		return errors.Wrapf(err, "insert alert %s", alert.AlertID)
	}
	return nil
}

// LoadAlerts reads alerts in insertion order.
func (p *PostgresPersister) LoadAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT payload FROM %s ORDER BY seq`, p.table))
	if err != nil {
		return nil, errors.Wrap(err, "query alerts")
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "scan alert")
		}
		var alert models.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			return nil, errors.Wrap(err, "decode alert payload")
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate alerts")
	}
	return alerts, nil
}

// Clear deletes every alert row.
func (p *PostgresPersister) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, p.table)); err != nil {
		return errors.Wrap(err, "delete alerts")
	}
	return nil
}

// Close closes the pool.
func (p *PostgresPersister) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
