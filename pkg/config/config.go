// Package config loads service configuration from the environment and
// validates it before anything else starts.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/outboxlab/orderflow/pkg/logging"
)

// Config is the full environment surface shared by the order service and
// the outbox worker. Optional integrations (Kafka, Redis, OTLP, remote
// pricing) activate when their address is set.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	Port        int    `envconfig:"PORT" default:"3000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	UseInMemory bool   `envconfig:"USE_INMEMORY" default:"false"`

	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	OutboxBatchSize      int  `envconfig:"OUTBOX_BATCH_SIZE" default:"10"`
	OutboxPollIntervalMS int  `envconfig:"OUTBOX_POLL_INTERVAL_MS" default:"5000"`
	OutboxWorkers        int  `envconfig:"OUTBOX_WORKERS" default:"1"`
	OutboxEmbedded       bool `envconfig:"OUTBOX_EMBEDDED" default:"false"`
	OutboxRetentionDays  int  `envconfig:"OUTBOX_RETENTION_DAYS" default:"7"`

	KafkaBrokers []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string        `envconfig:"KAFKA_TOPIC" default:"order.events"`
	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	DedupTTL     time.Duration `envconfig:"DEDUP_TTL" default:"24h"`

	PricingBaseURL string `envconfig:"PRICING_BASE_URL"`
	OTLPEndpoint   string `envconfig:"OTLP_ENDPOINT"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads the environment and validates the result. Startup aborts on
// the first bad configuration, listing every offending variable at once.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []error

	switch c.AppEnv {
	case "development", "production", "test":
	default:
		problems = append(problems, fmt.Errorf("APP_ENV: must be development, production or test, got %q", c.AppEnv))
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Errorf("PORT: must be in 1..65535, got %d", c.Port))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if !c.UseInMemory && c.DatabaseURL == "" {
		problems = append(problems, errors.New("DATABASE_URL: required unless USE_INMEMORY is set"))
	}
	if c.OutboxBatchSize <= 0 {
		problems = append(problems, fmt.Errorf("OUTBOX_BATCH_SIZE: must be positive, got %d", c.OutboxBatchSize))
	}
	if c.OutboxPollIntervalMS <= 0 {
		problems = append(problems, fmt.Errorf("OUTBOX_POLL_INTERVAL_MS: must be positive, got %d", c.OutboxPollIntervalMS))
	}
	if c.OutboxWorkers <= 0 {
		problems = append(problems, fmt.Errorf("OUTBOX_WORKERS: must be positive, got %d", c.OutboxWorkers))
	}
	if c.OutboxRetentionDays < 0 {
		problems = append(problems, fmt.Errorf("OUTBOX_RETENTION_DAYS: must not be negative, got %d", c.OutboxRetentionDays))
	}
	if c.PricingBaseURL != "" {
		if _, err := url.ParseRequestURI(c.PricingBaseURL); err != nil {
			problems = append(problems, fmt.Errorf("PRICING_BASE_URL: %w", err))
		}
	}

	return errors.Join(problems...)
}

// PollInterval converts the millisecond knob into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.OutboxPollIntervalMS) * time.Millisecond
}

// ListenAddr is the HTTP bind address.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsDevelopment reports whether the service runs in its chatty local mode.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
