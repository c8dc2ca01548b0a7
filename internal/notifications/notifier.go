package notifications

import (
	"context"
	"errors"

	"tourdesk/internal/bookings/events"
	"tourdesk/pkg/kafka"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/metrics"
	"tourdesk/pkg/model"
)

var ErrUnknownEvent = errors.New("unknown booking event type")

// Notifier turns booking events into emails, at most one per event id.
type Notifier struct {
	sender        Sender
	dedupe        Deduper
	operatorEmail string
	log           *logger.Logger
}

func NewNotifier(sender Sender, dedupe Deduper, operatorEmail string, log *logger.Logger) *Notifier {
	return &Notifier{
		sender:        sender,
		dedupe:        dedupe,
		operatorEmail: operatorEmail,
		log:           log,
	}
}

// Handle is a kafka.MessageHandler. Bad payloads are permanent failures and
// go to the DLQ. Delivery failures are retried unless the mail server
// rejected the message outright.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		metrics.Notifications.WithLabelValues(msg.GetEventType(), metrics.ResultRejected).Inc()
		return kafka.NewPermanentError("malformed booking event", err)
	}

	email, err := Render(&event, n.operatorEmail)
	if err != nil {
		metrics.Notifications.WithLabelValues(event.EventType, metrics.ResultRejected).Inc()
		if errors.Is(err, ErrUnknownEvent) {
			n.log.Warn("Ignoring booking event", "event_type", event.EventType, "booking_id", event.BookingID)
			return nil
		}
		return kafka.NewPermanentError("failed to render notification", err)
	}

	eventID := msg.GetEventID()
	if eventID == "" {
		eventID = events.EventID(event.EventType, event.BookingID, event.Sequence)
	}

	first, err := n.dedupe.Claim(ctx, eventID)
	if err != nil {
		return kafka.NewTransientError("dedupe store unavailable", err)
	}
	if !first {
		metrics.Notifications.WithLabelValues(event.EventType, metrics.ResultDuplicate).Inc()
		n.log.Info("Skipping duplicate booking event", "event_id", eventID)
		return nil
	}

	if err := n.sender.Send(ctx, email); err != nil {
		if releaseErr := n.dedupe.Release(ctx, eventID); releaseErr != nil {
			n.log.Error("Failed to release notification claim", "event_id", eventID, "error", releaseErr)
		}
		metrics.Notifications.WithLabelValues(event.EventType, metrics.ResultFailed).Inc()
		return &kafka.KafkaError{Type: kafka.ClassifyError(err), Message: "failed to send notification", Err: err}
	}

	metrics.Notifications.WithLabelValues(event.EventType, metrics.ResultOK).Inc()
	n.log.Info("Notification sent",
		"event_id", eventID,
		"event_type", event.EventType,
		"booking_reference", event.BookingReference,
		"correlation_id", msg.GetCorrelationID(),
	)
	return nil
}
