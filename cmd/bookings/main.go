package main

import (
	"tourdesk/internal/bookings/events"
	"tourdesk/internal/bookings/handler"
	"tourdesk/internal/bookings/repository"
	"tourdesk/internal/bookings/service"
	"tourdesk/internal/bookings/validator"
	"tourdesk/pkg/app"
	"tourdesk/pkg/config"
	"tourdesk/pkg/health"
	"tourdesk/pkg/kafka"
	kafka_config "tourdesk/pkg/kafka/config"
	kafkamiddleware "tourdesk/pkg/kafka/middleware"
	"tourdesk/pkg/token"
)

func main() {
	cfg := config.Load(config.ServiceBookings)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	producer := initProducer(cfg)
	bookingService := initServices(cfg, producer)
	tokens := token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	serverApp := app.NewApplication()
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})
	serverApp.SetApp(cfg, handler.NewBookingHandler(bookingService, tokens, cfg.Log), map[string]health.Checker{
		"mongo": health.MongoChecker(cfg.Client.Mongo),
		"redis": health.RedisChecker(cfg.Client.Redis),
	})
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.KafkaBookingTopic, cfg.KafkaDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafkamiddleware.MetricsProducerMiddleware())
	return producer
}

func initServices(cfg *config.Config, producer *kafka.Producer) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	bookingService := service.NewBookingService(
		bookingRepo,
		events.NewKafkaPublisher(producer),
		bookingValidator,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName, "topic", cfg.KafkaBookingTopic)
	return bookingService
}
