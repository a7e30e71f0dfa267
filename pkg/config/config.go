// Package config loads PIREX configuration from a YAML file with
// PIREX_* environment-variable overrides. Every subsystem (server, storage,
// Postgres, Kafka, Redis, search, logging, metrics) has its own typed block.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. MutationsPerMinute caps opus
// writes per client address; 0 disables the limit.
type ServerConfig struct {
	Port               int           `yaml:"port"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
	MutationsPerMinute int           `yaml:"mutationsPerMinute"`
}

// StorageConfig selects where the library is persisted.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	SnapshotDir string `yaml:"snapshotDir"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Publishing and
// consuming are skipped entirely when Enabled is false.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogEvents   string `yaml:"catalogEvents"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls result limits and evaluator behaviour.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
	PreviewChars int `yaml:"previewChars"`
	// StrictEmptyMatches keeps an empty intermediate match set empty
	// instead of letting the next WORD or NOT rescan the whole corpus.
	StrictEmptyMatches bool `yaml:"strictEmptyMatches"`
	IndexWorkers       int  `yaml:"indexWorkers"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendPostgres:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendPostgres, c.Storage.Backend)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit %d exceeds search.maxResults %d", c.Search.DefaultLimit, c.Search.MaxResults)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			RequestTimeout:     10 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			MutationsPerMinute: 120,
		},
		Storage: StorageConfig{
			Backend:     BackendFile,
			SnapshotDir: "data",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "pirex",
			User:            "pirex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "pirex-catalog",
			Topics: KafkaTopics{
				CatalogEvents:   "pirex.catalog-events",
				AnalyticsEvents: "pirex.analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxResults:   500,
			PreviewChars: 160,
			IndexWorkers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads PIREX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("PIREX_SERVER_PORT", &cfg.Server.Port)
	setInt("PIREX_SERVER_MUTATIONS_PER_MINUTE", &cfg.Server.MutationsPerMinute)
	setString("PIREX_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("PIREX_STORAGE_SNAPSHOT_DIR", &cfg.Storage.SnapshotDir)
	setString("PIREX_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("PIREX_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("PIREX_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("PIREX_POSTGRES_USER", &cfg.Postgres.User)
	setString("PIREX_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("PIREX_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setBool("PIREX_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("PIREX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setBool("PIREX_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("PIREX_REDIS_ADDR", &cfg.Redis.Addr)
	setString("PIREX_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("PIREX_SEARCH_DEFAULT_LIMIT", &cfg.Search.DefaultLimit)
	setInt("PIREX_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	setBool("PIREX_SEARCH_STRICT_EMPTY_MATCHES", &cfg.Search.StrictEmptyMatches)
	setString("PIREX_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("PIREX_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("PIREX_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("PIREX_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
