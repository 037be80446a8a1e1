package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"socwatch/config"
	"socwatch/internal/detection"
	inputredis "socwatch/internal/input/redis"
	"socwatch/internal/logger"
	"socwatch/internal/metrics"
	"socwatch/internal/output/alertclickhouse"
	"socwatch/internal/output/alerthttp"
	"socwatch/internal/output/alertjson"
	"socwatch/internal/output/alertkafka"
	"socwatch/internal/output/alertnats"
	"socwatch/internal/output/logjson"
	"socwatch/internal/pipeline"
	"socwatch/internal/rules"
	"socwatch/internal/server"
	"socwatch/internal/storage"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the SOC backend API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	// Background loops stop with the server, including when it fails to start.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc := cfg.SocWatch.Server
	logger.Infof("socwatch backend starting")

	persister, err := openPersister(ctx, sc)
	if err != nil {
		return err
	}
	store := storage.New(storage.Config{Persister: persister})
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("Failed to close store: %v", err)
		}
	}()
	n, err := store.Load(ctx)
	if err != nil {
		logger.Warnf("Failed to load persisted alerts: %v", err)
	} else {
		logger.Infof("Loaded %d persisted alerts (storage mode: %s)", n, sc.Storage.Mode)
	}

	collector := metrics.NewCollector()

	ruleEngine, err := loadRules(sc.Rules)
	if err != nil {
		return err
	}
	engine := detection.NewEngine(detection.Config{
		BruteForceThreshold: sc.Detection.BruteForceThreshold,
		BruteForceWindow:    sc.Detection.BruteForceWindow,
		SuspiciousLocations: sc.Detection.SuspiciousLocations,
		Rules:               ruleEngine,
	})

	var capture pipeline.LogWriter
	if sc.Capture.Enabled {
		w, err := logjson.NewWriter(sc.Capture.File.Path)
		if err != nil {
			return errors.Wrap(err, "create log capture writer")
		}
		capture = w
		defer capture.Close()
		logger.Infof("Log capture enabled (%s)", sc.Capture.File.Path)
	}

	ingestor := pipeline.NewIngestor(pipeline.IngestConfig{
		Store:    store,
		Detector: engine,
		Capture:  capture,
		Metrics:  collector,
	})

	writer, err := openAlertWriter(sc.Output)
	if err != nil {
		return err
	}
	if writer != nil {
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warnf("Failed to close alert writers: %v", err)
			}
		}()
	}

	processor := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Store:    store,
		Writer:   writer,
		Metrics:  collector,
		Interval: sc.ProcessorInterval,
	})

	var wg sync.WaitGroup
	var queueDepth server.QueueDepthFunc
	if sc.Input.Redis.Enabled {
		rc := sc.Input.Redis
		consumer, err := inputredis.NewConsumer(inputredis.Config{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			Key:          rc.Key,
			BlockTimeout: rc.BlockTimeout,
		})
		if err != nil {
			return errors.Wrap(err, "create redis consumer")
		}
		queueDepth = consumer.Len

		queue := pipeline.NewRedisIngestPipeline(consumer, ingestor, 0)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warnf("Failed to close redis log queue: %v", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Redis log queue stopped: %v", err)
			}
		}()
		logger.Infof("Redis log queue input enabled (%s key=%s)", rc.Addr, rc.Key)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Signal processor stopped: %v", err)
		}
	}()

	srv := server.New(server.Config{
		Store:       store,
		Ingestor:    ingestor,
		Realtime:    metrics.NewSynthesizer(nil),
		Metrics:     collector,
		CORSOrigins: sc.CORSOrigins,
		QueueDepth:  queueDepth,
		OnClear:     engine.Reset,
	})

	logger.Infof("SOC API listening on %s", sc.Listen)
	serveErr := srv.ListenAndServe(ctx, sc.Listen)
	if serveErr != nil {
		logger.Errorf("HTTP server stopped: %v", serveErr)
	}

	cancel()
	wg.Wait()
	logger.Infof("socwatch backend stopped")
	return serveErr
}

// loadRules returns a no-op engine when rules are disabled or none load.
func loadRules(rc config.RulesConfig) (rules.Engine, error) {
	if !rc.Enabled {
		return &rules.NoopEngine{}, nil
	}
	path := strings.TrimSpace(rc.Path)
	if path == "" {
		logger.Warnf("Rules enabled but rules.path is empty; rule detection disabled")
		return &rules.NoopEngine{}, nil
	}
	engine, stats, err := rules.NewSigmaEngine(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load sigma rules from %s", path)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedDatasource,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; rule detection is effectively disabled")
		return &rules.NoopEngine{}, nil
	}
	return engine, nil
}

func openPersister(ctx context.Context, sc config.ServerConfig) (storage.Persister, error) {
	switch sc.Storage.Mode {
	case "memory":
		return nil, nil
	case "file":
		p, err := storage.NewFilePersister(sc.DataDir)
		if err != nil {
			return nil, errors.Wrap(err, "create file persister")
		}
		logger.Infof("Alert storage: file (%s)", p.Path())
		return p, nil
	case "redis":
		rc := sc.Storage.Redis
		p, err := connectWithRetry(ctx, "redis", func() (*storage.RedisPersister, error) {
			return storage.NewRedisPersister(storage.RedisConfig{
				Addr:      rc.Addr,
				Password:  rc.Password,
				DB:        rc.DB,
				KeyPrefix: rc.KeyPrefix,
			})
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Alert storage: redis (%s prefix=%s)", rc.Addr, rc.KeyPrefix)
		return p, nil
	case "postgres":
		pc := sc.Storage.Postgres
		if pc.DSN == "" {
			return nil, errors.Newf("postgres storage needs a dsn (set %s)", config.EnvPostgresDSN)
		}
		p, err := connectWithRetry(ctx, "postgres", func() (*storage.PostgresPersister, error) {
			return storage.NewPostgresPersister(ctx, storage.PostgresConfig{DSN: pc.DSN, Table: pc.Table})
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Alert storage: postgres (table=%s)", pc.Table)
		return p, nil
	default:
		return nil, errors.Newf("unknown storage mode: %s", sc.Storage.Mode)
	}
}

// connectWithRetry retries a startup connection with exponential backoff.
func connectWithRetry[T any](ctx context.Context, name string, connect func() (T, error)) (T, error) {
	var out T
	op := func() error {
		v, err := connect()
		if err != nil {
			return err
		}
		out = v
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	notify := func(err error, wait time.Duration) {
		logger.Warnf("Connect %s failed, retrying in %s: %v", name, wait, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, 5), ctx), notify); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "connect %s", name)
	}
	return out, nil
}

// openAlertWriter builds the alert fan-out. Mode is a comma separated list
// of sinks, e.g. "file,nats".
func openAlertWriter(oc config.OutputConfig) (pipeline.AlertWriter, error) {
	var writers pipeline.MultiAlertWriter
	for _, mode := range strings.Split(oc.Mode, ",") {
		mode = strings.TrimSpace(mode)
		var (
			w   pipeline.AlertWriter
			err error
		)
		switch mode {
		case "", "none":
			continue
		case "file":
			w, err = alertjson.NewWriter(oc.File.Path)
		case "http":
			w, err = alerthttp.NewWriter(alerthttp.Config{
				URL:     oc.HTTP.URL,
				Timeout: oc.HTTP.Timeout,
				Headers: oc.HTTP.Headers,
			})
		case "nats":
			w, err = alertnats.NewWriter(alertnats.Config{URL: oc.NATS.URL, Subject: oc.NATS.Subject})
		case "kafka":
			w, err = alertkafka.NewWriter(alertkafka.Config{Brokers: oc.Kafka.Brokers, Topic: oc.Kafka.Topic})
		case "clickhouse":
			ch := oc.ClickHouse
			w, err = alertclickhouse.NewWriter(alertclickhouse.Config{
				URL:      ch.URL,
				Database: ch.Database,
				Table:    ch.Table,
				Username: ch.Username,
				Password: ch.Password,
				Timeout:  ch.Timeout,
				Headers:  ch.Headers,
			})
		default:
			err = errors.Newf("unknown alert output mode: %s", mode)
		}
		if err != nil {
			_ = writers.Close()
			return nil, errors.Wrapf(err, "create %s alert writer", mode)
		}
		logger.Infof("Alert output enabled: %s", mode)
		writers = append(writers, w)
	}

	switch len(writers) {
	case 0:
		return nil, nil
	case 1:
		return writers[0], nil
	default:
		return writers, nil
	}
}
