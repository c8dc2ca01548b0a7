package kafka_middleware

import (
	"context"
	"time"

	"tourdesk/pkg/kafka"
	"tourdesk/pkg/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		return observe(directionPublish, func() error { return next(ctx, msg) })
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		return observe(directionConsume, func() error { return next(ctx, msg) })
	}
}

func observe(direction string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.KafkaDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	metrics.KafkaMessages.WithLabelValues(direction, metrics.Result(err)).Inc()
	return err
}
