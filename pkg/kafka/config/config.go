package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tourdesk/pkg/logger"
)

const (
	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"

	EnvConsumerStartOffset    = "KAFKA_CONSUMER_START_OFFSET"
	EnvConsumerMaxWait        = "KAFKA_CONSUMER_MAX_WAIT"
	EnvConsumerSessionTimeout = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	EnvConsumerMaxRetries     = "KAFKA_CONSUMER_MAX_RETRIES"
	EnvConsumerRetryBackoff   = "KAFKA_CONSUMER_RETRY_BACKOFF"
)

// Booking events are small and rare, so batching is kept short and every
// write waits for all in-sync replicas.
const (
	DefaultProducerMaxAttempts  = 5
	DefaultProducerBatchTimeout = 5 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"

	DefaultConsumerStartOffset       = -2
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 1 << 20
	DefaultConsumerMaxWait           = time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 30 * time.Second
	DefaultConsumerRebalanceTimeout  = 60 * time.Second
	DefaultConsumerMaxRetries        = 4
	DefaultConsumerRetryBackoff      = 2 * time.Second
)

type Producer struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 all, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
}

// Consumer settings. Commits are synchronous so a notification is only
// acknowledged once its handler returned.
type Consumer struct {
	StartOffset       int64 // -1 newest, -2 oldest
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
}

type Config struct {
	Brokers  []string
	Producer Producer
	Consumer Consumer
}

func Load(brokers []string) (*Config, error) {
	cfg := &Config{
		Brokers: brokers,
		Producer: Producer{
			MaxAttempts:  envInt(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: envDuration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  envInt(EnvProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  strings.ToLower(envStr(EnvProducerCompression, DefaultProducerCompression)),
		},
		Consumer: Consumer{
			StartOffset:       int64(envInt(EnvConsumerStartOffset, DefaultConsumerStartOffset)),
			MinBytes:          DefaultConsumerMinBytes,
			MaxBytes:          DefaultConsumerMaxBytes,
			MaxWait:           envDuration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
			HeartbeatInterval: DefaultConsumerHeartbeatInterval,
			SessionTimeout:    envDuration(EnvConsumerSessionTimeout, DefaultConsumerSessionTimeout),
			RebalanceTimeout:  DefaultConsumerRebalanceTimeout,
			MaxRetries:        envInt(EnvConsumerMaxRetries, DefaultConsumerMaxRetries),
			RetryBackoff:      envDuration(EnvConsumerRetryBackoff, DefaultConsumerRetryBackoff),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errors = append(errors, fmt.Sprintf("Broker %d cannot be empty", i))
		}
	}
	errors = append(errors, cfg.Producer.problems()...)
	errors = append(errors, cfg.Consumer.problems()...)

	if len(errors) > 0 {
		return fmt.Errorf("Kafka configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

func (p Producer) problems() []string {
	var out []string
	if p.MaxAttempts <= 0 {
		out = append(out, fmt.Sprintf("Producer.MaxAttempts must be positive, got: %d", p.MaxAttempts))
	}
	if p.BatchTimeout <= 0 {
		out = append(out, fmt.Sprintf("Producer.BatchTimeout must be positive, got: %s", p.BatchTimeout))
	}
	switch p.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		out = append(out, fmt.Sprintf("Producer.Compression must be one of none, gzip, snappy, lz4, zstd, got: %s", p.Compression))
	}
	if p.RequireAcks < -1 || p.RequireAcks > 1 {
		out = append(out, fmt.Sprintf("Producer.RequireAcks must be -1, 0 or 1, got: %d", p.RequireAcks))
	}
	return out
}

func (c Consumer) problems() []string {
	var out []string
	if c.StartOffset != -1 && c.StartOffset != -2 {
		out = append(out, fmt.Sprintf("Consumer.StartOffset must be -1 (newest) or -2 (oldest), got: %d", c.StartOffset))
	}
	if c.MaxWait <= 0 {
		out = append(out, fmt.Sprintf("Consumer.MaxWait must be positive, got: %s", c.MaxWait))
	}
	if c.SessionTimeout <= c.HeartbeatInterval {
		out = append(out, fmt.Sprintf("Consumer.SessionTimeout (%s) must be longer than the %s heartbeat", c.SessionTimeout, c.HeartbeatInterval))
	}
	if c.MaxRetries < 0 {
		out = append(out, fmt.Sprintf("Consumer.MaxRetries cannot be negative, got: %d", c.MaxRetries))
	}
	if c.RetryBackoff < 0 {
		out = append(out, fmt.Sprintf("Consumer.RetryBackoff cannot be negative, got: %s", c.RetryBackoff))
	}
	return out
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", strings.Join(cfg.Brokers, ","),
		"producer_acks", cfg.Producer.RequireAcks,
		"producer_compression", cfg.Producer.Compression,
		"producer_max_attempts", cfg.Producer.MaxAttempts,
		"consumer_start_offset", cfg.Consumer.StartOffset,
		"consumer_max_retries", cfg.Consumer.MaxRetries,
		"consumer_retry_backoff", cfg.Consumer.RetryBackoff,
	)
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(envStr(key, "")); err == nil {
		return n
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(envStr(key, "")); err == nil {
		return d
	}
	return fallback
}
