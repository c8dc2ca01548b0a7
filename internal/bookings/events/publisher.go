package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tourdesk/pkg/kafka"
	"tourdesk/pkg/middleware"
	"tourdesk/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "bookings"

	HeaderBookingReference = "booking_reference"
)

// Publisher emits booking lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking) error
}

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer producer
	now      func() time.Time
}

func NewKafkaPublisher(p producer) Publisher {
	return &kafkaPublisher{producer: p, now: time.Now}
}

// EventID is deterministic per booking, event type and confirmation count,
// so a redelivered or re-published event is deduplicated by consumers while
// a later confirmation of the same booking gets a fresh id.
func EventID(eventType, bookingID string, sequence int) string {
	if sequence == 0 {
		return eventType + ":" + bookingID
	}
	return eventType + ":" + bookingID + ":" + strconv.Itoa(sequence)
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) error {
	event := model.NewBookingEvent(eventType, booking, p.now().UTC())

	msg, err := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventID(EventID(eventType, booking.ID, event.Sequence)).
		WithEventType(eventType).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithHeader(HeaderBookingReference, booking.BookingReference).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	return p.producer.Publish(ctx, msg)
}
