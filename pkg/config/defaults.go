package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tourdesk"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultEnvFile  = ".env"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaBrokers       = "localhost:9092"
	DefaultKafkaBookingTopic  = "booking-events"
	DefaultKafkaDLQTopic      = "booking-events-dlq"
	DefaultKafkaConsumerGroup = "tourdesk-notifier"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultLoginRateLimitRequests = 5
	DefaultLoginRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultAccessTokenTTL  = 60 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
	MinJWTSecretLength     = 32

	DefaultSMTPPort      = 587
	DefaultSMTPFrom      = "bookings@tourdesk.local"
	DefaultOperatorEmail = "operator@tourdesk.local"

	DefaultBookingReferencePrefix = "RT"
	DefaultNotificationDedupeTTL  = 24 * time.Hour

	DefaultPaginationLimit = 100
)
