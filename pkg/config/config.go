package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tourdesk/pkg/client"
	"tourdesk/pkg/logger"
)

const (
	ServiceBookings = "bookings"
	ServiceAuth     = "auth"
	ServiceNotifier = "notifier"
	ServiceMigrate  = "migrate"
)

type Config struct {
	ServiceName string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers       []string
	KafkaBookingTopic  string
	KafkaDLQTopic      string
	KafkaConsumerGroup string

	RateLimitRequests      int
	RateLimitWindow        time.Duration
	LoginRateLimitRequests int
	LoginRateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string
	OperatorEmail string

	AdminUsername string
	AdminPassword string
	AdminEmail    string

	BookingReferencePrefix string
	NotificationDedupeTTL  time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment (after an optional .env file) and exits the
// process when the result does not validate.
func Load(serviceName string) *Config {
	loadEnvFile()

	cfg := FromEnv(serviceName)
	cfg.Log = logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func loadEnvFile() {
	path := getEnvStr(EnvFile, DefaultEnvFile)
	if _, err := os.Stat(path); err != nil {
		return
	}
	// Variables already present in the environment win over the file.
	_ = godotenv.Load(path)
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		KafkaBrokers:       getEnvList(EnvKafkaBrokers, DefaultKafkaBrokers),
		KafkaBookingTopic:  getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),
		KafkaDLQTopic:      getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),
		KafkaConsumerGroup: getEnvStr(EnvKafkaConsumerGroup, DefaultKafkaConsumerGroup),

		RateLimitRequests:      getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:        getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		LoginRateLimitRequests: getEnvNum(EnvLoginRateLimitRequests, DefaultLoginRateLimitRequests),
		LoginRateLimitWindow:   getEnvDuration(EnvLoginRateLimitWindow, DefaultLoginRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		JWTSecret:       getEnvStr(EnvJWTSecret, ""),
		AccessTokenTTL:  getEnvDuration(EnvAccessTokenTTL, DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDuration(EnvRefreshTokenTTL, DefaultRefreshTokenTTL),

		SMTPHost:      getEnvStr(EnvSMTPHost, ""),
		SMTPPort:      getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername:  getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword:  getEnvStr(EnvSMTPPassword, ""),
		SMTPFrom:      getEnvStr(EnvSMTPFrom, DefaultSMTPFrom),
		OperatorEmail: getEnvStr(EnvOperatorEmail, DefaultOperatorEmail),

		AdminUsername: getEnvStr(EnvAdminUsername, ""),
		AdminPassword: getEnvStr(EnvAdminPassword, ""),
		AdminEmail:    getEnvStr(EnvAdminEmail, ""),

		BookingReferencePrefix: getEnvStr(EnvBookingReferencePrefix, DefaultBookingReferencePrefix),
		NotificationDedupeTTL:  getEnvDuration(EnvNotificationDedupeTTL, DefaultNotificationDedupeTTL),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) requiresJWT() bool {
	return cfg.ServiceName == ServiceAuth || cfg.ServiceName == ServiceBookings
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if len(cfg.KafkaBrokers) == 0 {
		errors = append(errors, "KafkaBrokers cannot be empty")
	}
	if cfg.KafkaBookingTopic == "" {
		errors = append(errors, "KafkaBookingTopic cannot be empty")
	}
	if cfg.KafkaBookingTopic != "" && cfg.KafkaBookingTopic == cfg.KafkaDLQTopic {
		errors = append(errors, "KafkaDLQTopic must differ from KafkaBookingTopic")
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.LoginRateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateLimitWindow must be positive, got: %s", cfg.LoginRateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.LoginRateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateLimitRequests must be positive, got: %d", cfg.LoginRateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.requiresJWT() && len(cfg.JWTSecret) < MinJWTSecretLength {
		errors = append(errors, fmt.Sprintf("JWTSecret must be at least %d characters, got: %d", MinJWTSecretLength, len(cfg.JWTSecret)))
	}
	if cfg.AccessTokenTTL <= 0 {
		errors = append(errors, fmt.Sprintf("AccessTokenTTL must be positive, got: %s", cfg.AccessTokenTTL))
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		errors = append(errors, fmt.Sprintf("RefreshTokenTTL (%s) must be longer than AccessTokenTTL (%s)", cfg.RefreshTokenTTL, cfg.AccessTokenTTL))
	}

	if cfg.SMTPHost != "" && (cfg.SMTPPort < 1 || cfg.SMTPPort > 65535) {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		errors = append(errors, "AdminUsername and AdminPassword must be set together")
	}

	if !regexp.MustCompile(`^[A-Z]{1,4}$`).MatchString(cfg.BookingReferencePrefix) {
		errors = append(errors, fmt.Sprintf("BookingReferencePrefix must be 1-4 upper-case letters, got: %s", cfg.BookingReferencePrefix))
	}
	if cfg.NotificationDedupeTTL <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationDedupeTTL must be positive, got: %s", cfg.NotificationDedupeTTL))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"kafka_booking_topic", cfg.KafkaBookingTopic,
		"kafka_dlq_topic", cfg.KafkaDLQTopic,
		"kafka_consumer_group", cfg.KafkaConsumerGroup,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"login_rate_limit_requests", cfg.LoginRateLimitRequests,
		"login_rate_limit_window", cfg.LoginRateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"jwt_secret_set", cfg.JWTSecret != "",
		"access_token_ttl", cfg.AccessTokenTTL,
		"refresh_token_ttl", cfg.RefreshTokenTTL,
		"smtp_host", cfg.SMTPHost,
		"smtp_port", cfg.SMTPPort,
		"operator_email", cfg.OperatorEmail,
		"admin_seed_set", cfg.AdminUsername != "",
		"booking_reference_prefix", cfg.BookingReferencePrefix,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnvStr(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
