package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	SocWatch SocWatchConfig `yaml:"socwatch"`
}

// SocWatchConfig is the project configuration.
type SocWatchConfig struct {
	API       APIConfig       `yaml:"api"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig controls how clients reach the SOC API.
type APIConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// DashboardConfig controls the terminal dashboard polling.
type DashboardConfig struct {
	AlertsInterval   time.Duration `yaml:"alerts_interval"`
	RealtimeInterval time.Duration `yaml:"realtime_interval"`
	PriorityInterval time.Duration `yaml:"priority_interval"`
	AlertsLimit      int           `yaml:"alerts_limit"`
	PriorityLimit    int           `yaml:"priority_limit"`
}

// ServerConfig controls the SOC backend.
type ServerConfig struct {
	Listen            string          `yaml:"listen"`
	DataDir           string          `yaml:"data_dir"`
	ProcessorInterval time.Duration   `yaml:"processor_interval"`
	CORSOrigins       []string        `yaml:"cors_origins"`
	Storage           StorageConfig   `yaml:"storage"`
	Input             InputConfig     `yaml:"input"`
	Rules             RulesConfig     `yaml:"rules"`
	Detection         DetectionConfig `yaml:"detection"`
	Output            OutputConfig    `yaml:"output"`
	Capture           CaptureConfig   `yaml:"capture"`
}

// StorageConfig selects the alert persister.
type StorageConfig struct {
	Mode     string         `yaml:"mode"` // file|redis|postgres|memory
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the Postgres persister.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// InputConfig controls optional log queue input.
type InputConfig struct {
	Redis RedisInputConfig `yaml:"redis"`
}

// RedisInputConfig controls the Redis list consumer.
type RedisInputConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// RedisConfig controls Redis access.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RulesConfig controls Sigma rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DetectionConfig tunes the built-in detectors.
type DetectionConfig struct {
	BruteForceThreshold int           `yaml:"brute_force_threshold"`
	BruteForceWindow    time.Duration `yaml:"brute_force_window"`
	SuspiciousLocations []string      `yaml:"suspicious_locations"`
}

// OutputConfig controls alert fan-out.
type OutputConfig struct {
	Mode       string                 `yaml:"mode"` // comma separated: none|file|http|nats|kafka|clickhouse
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	NATS       NATSOutputConfig       `yaml:"nats"`
	Kafka      KafkaOutputConfig      `yaml:"kafka"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// NATSOutputConfig config for NATS publishing.
type NATSOutputConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// KafkaOutputConfig config for Kafka publishing.
type KafkaOutputConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// CaptureConfig controls raw log capture for replay.
type CaptureConfig struct {
	Enabled bool             `yaml:"enabled"`
	File    FileOutputConfig `yaml:"file"`
}

// GeneratorConfig controls the synthetic log generator.
type GeneratorConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
	Count       int           `yaml:"count"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// Environment overrides.
const (
	EnvAPIURL      = "SOCWATCH_API_URL"
	EnvListen      = "SOCWATCH_LISTEN"
	EnvPostgresDSN = "SOCWATCH_POSTGRES_DSN"
)

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	return &cfg, nil
}

// Load resolves the config file, applies .env and environment overrides and
// fills defaults. A missing config file yields the defaults.
func Load(configArg string) (*Config, string, error) {
	_ = godotenv.Load()

	path := FindConfigFile(configArg)
	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	} else {
		path = ""
	}

	applyEnv(cfg)
	ApplyDefaults(cfg)
	return cfg, path, nil
}

// FindConfigFile returns the first config path that exists.
func FindConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
	}

	if _, err := os.Stat("socwatch.yml"); err == nil {
		return "socwatch.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "socwatch.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if configArg != "" {
		return configArg
	}
	return "socwatch.yml"
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.SocWatch.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListen)); v != "" {
		cfg.SocWatch.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.SocWatch.Server.Storage.Postgres.DSN = v
	}
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	sw := &cfg.SocWatch

	if sw.API.BaseURL == "" {
		sw.API.BaseURL = "http://localhost:8000"
	}

	if sw.Dashboard.AlertsInterval <= 0 {
		sw.Dashboard.AlertsInterval = 10 * time.Second
	}
	if sw.Dashboard.RealtimeInterval <= 0 {
		sw.Dashboard.RealtimeInterval = 2 * time.Second
	}
	if sw.Dashboard.PriorityInterval <= 0 {
		sw.Dashboard.PriorityInterval = 5 * time.Second
	}
	if sw.Dashboard.AlertsLimit <= 0 {
		sw.Dashboard.AlertsLimit = 100
	}
	if sw.Dashboard.PriorityLimit <= 0 {
		sw.Dashboard.PriorityLimit = 50
	}

	if sw.Server.Listen == "" {
		sw.Server.Listen = ":8000"
	}
	if sw.Server.DataDir == "" {
		sw.Server.DataDir = "data"
	}
	if sw.Server.ProcessorInterval <= 0 {
		sw.Server.ProcessorInterval = 5 * time.Second
	}
	if len(sw.Server.CORSOrigins) == 0 {
		sw.Server.CORSOrigins = []string{"*"}
	}

	if sw.Server.Storage.Mode == "" {
		sw.Server.Storage.Mode = "file"
	}
	if sw.Server.Storage.Redis.Addr == "" {
		sw.Server.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if sw.Server.Storage.Redis.KeyPrefix == "" {
		sw.Server.Storage.Redis.KeyPrefix = "socwatch"
	}
	if sw.Server.Storage.Postgres.Table == "" {
		sw.Server.Storage.Postgres.Table = "alerts"
	}

	if sw.Server.Input.Redis.Addr == "" {
		sw.Server.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if sw.Server.Input.Redis.Key == "" {
		sw.Server.Input.Redis.Key = "security_logs"
	}
	if sw.Server.Input.Redis.BlockTimeout <= 0 {
		sw.Server.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if sw.Server.Detection.BruteForceThreshold <= 0 {
		sw.Server.Detection.BruteForceThreshold = 5
	}
	if sw.Server.Detection.BruteForceWindow <= 0 {
		sw.Server.Detection.BruteForceWindow = 2 * time.Minute
	}

	if sw.Server.Output.Mode == "" {
		sw.Server.Output.Mode = "none"
	}
	if sw.Server.Output.File.Path == "" {
		sw.Server.Output.File.Path = "output/alerts.jsonl"
	}
	if sw.Server.Output.NATS.Subject == "" {
		sw.Server.Output.NATS.Subject = "socwatch.alerts"
	}
	if sw.Server.Output.Kafka.Topic == "" {
		sw.Server.Output.Kafka.Topic = "socwatch-alerts"
	}
	if sw.Server.Output.ClickHouse.Database == "" {
		sw.Server.Output.ClickHouse.Database = "socwatch"
	}
	if sw.Server.Output.ClickHouse.Table == "" {
		sw.Server.Output.ClickHouse.Table = "alerts"
	}
	if sw.Server.Capture.File.Path == "" {
		sw.Server.Capture.File.Path = "output/logs.jsonl"
	}

	if sw.Generator.MinInterval <= 0 {
		sw.Generator.MinInterval = 1 * time.Second
	}
	if sw.Generator.MaxInterval < sw.Generator.MinInterval {
		sw.Generator.MaxInterval = sw.Generator.MinInterval + 2*time.Second
	}

	if sw.Logging.Level == "" {
		sw.Logging.Level = "info"
	}
}
