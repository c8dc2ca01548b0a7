package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(service string) *Config {
	cfg := FromEnv(service)
	cfg.JWTSecret = strings.Repeat("s", MinJWTSecretLength)
	return cfg
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(ServiceNotifier)

	if cfg.MongoDatabaseName != DefaultMongoDatabaseName {
		t.Errorf("MongoDatabaseName = %s, want %s", cfg.MongoDatabaseName, DefaultMongoDatabaseName)
	}
	if cfg.AccessTokenTTL != 60*time.Minute {
		t.Errorf("AccessTokenTTL = %s, want 60m", cfg.AccessTokenTTL)
	}
	if cfg.BookingReferencePrefix != "RT" {
		t.Errorf("BookingReferencePrefix = %s, want RT", cfg.BookingReferencePrefix)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != DefaultKafkaBrokers {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,,")
	t.Setenv(EnvAccessTokenTTL, "15m")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvSMTPPort, "not-a-number")

	cfg := FromEnv(ServiceAuth)

	if got := strings.Join(cfg.KafkaBrokers, "|"); got != "k1:9092|k2:9092" {
		t.Errorf("KafkaBrokers = %s", got)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %s, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
	if cfg.SMTPPort != DefaultSMTPPort {
		t.Errorf("SMTPPort = %d, want fallback %d", cfg.SMTPPort, DefaultSMTPPort)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		service string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid bookings config", service: ServiceBookings, mutate: func(*Config) {}},
		{
			name:    "short jwt secret for auth",
			service: ServiceAuth,
			mutate:  func(c *Config) { c.JWTSecret = "short" },
			wantErr: "JWTSecret",
		},
		{
			name:    "notifier does not need jwt",
			service: ServiceNotifier,
			mutate:  func(c *Config) { c.JWTSecret = "" },
		},
		{
			name:    "bad mongo uri",
			service: ServiceMigrate,
			mutate:  func(c *Config) { c.MongoURI = "postgres://localhost" },
			wantErr: "MongoURI",
		},
		{
			name:    "refresh shorter than access",
			service: ServiceAuth,
			mutate:  func(c *Config) { c.RefreshTokenTTL = time.Minute },
			wantErr: "RefreshTokenTTL",
		},
		{
			name:    "admin seed half set",
			service: ServiceMigrate,
			mutate:  func(c *Config) { c.AdminUsername = "admin" },
			wantErr: "AdminUsername",
		},
		{
			name:    "lower case reference prefix",
			service: ServiceBookings,
			mutate:  func(c *Config) { c.BookingReferencePrefix = "tr" },
			wantErr: "BookingReferencePrefix",
		},
		{
			name:    "dlq equals main topic",
			service: ServiceNotifier,
			mutate:  func(c *Config) { c.KafkaDLQTopic = c.KafkaBookingTopic },
			wantErr: "KafkaDLQTopic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(tt.service)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://user:pass@db:27017")
	if got != "mongodb://***:***@db:27017" {
		t.Errorf("redactMongoURI() = %s", got)
	}
}

func TestNormalizePagination(t *testing.T) {
	if got := NormalizePaginationLimit(0); got != 10 {
		t.Errorf("NormalizePaginationLimit(0) = %d, want 10", got)
	}
	if got := NormalizePaginationLimit(500); got != DefaultPaginationLimit {
		t.Errorf("NormalizePaginationLimit(500) = %d, want %d", got, DefaultPaginationLimit)
	}
	if got := NormalizeOffset(-5); got != 0 {
		t.Errorf("NormalizeOffset(-5) = %d, want 0", got)
	}
}
