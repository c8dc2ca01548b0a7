package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"tourdesk/internal/notifications"
	"tourdesk/pkg/config"
	"tourdesk/pkg/health"
	"tourdesk/pkg/kafka"
	kafka_config "tourdesk/pkg/kafka/config"
	kafkamiddleware "tourdesk/pkg/kafka/middleware"
	"tourdesk/pkg/metrics"
)

func main() {
	cfg := config.Load(config.ServiceNotifier)
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notifications.NewNotifier(
		initSender(cfg),
		notifications.NewRedisDeduper(cfg.Client.Redis, cfg.NotificationDedupeTTL),
		cfg.OperatorEmail,
		cfg.Log,
	)

	consumer := initConsumer(cfg, notifier)
	server := initOpsServer(cfg)

	go func() {
		cfg.Log.Info("Starting ops server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Ops server failed", "error", err)
		}
	}()

	cfg.Log.Info("Starting Notifier", "topic", cfg.KafkaBookingTopic, "group", cfg.KafkaConsumerGroup)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Ops server shutdown failed", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}

func initSender(cfg *config.Config) notifications.Sender {
	if cfg.SMTPHost == "" {
		cfg.Log.Warn("SMTP_HOST not set, emails will only be logged")
		return notifications.NewLogSender(cfg.Log)
	}
	return notifications.NewSMTPSender(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func initConsumer(cfg *config.Config, notifier *notifications.Notifier) *kafka.Consumer {
	kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.Log, cfg.KafkaBookingTopic, cfg.KafkaConsumerGroup, cfg.KafkaDLQTopic, notifier.Handle)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafkamiddleware.MetricsConsumerMiddleware())
	return consumer
}

func initOpsServer(cfg *config.Config) *http.Server {
	router := httprouter.New()
	health.NewHealthHandler(map[string]health.Checker{
		"redis": health.RedisChecker(cfg.Client.Redis),
	}, cfg.Log).RegisterRoutes(router)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
