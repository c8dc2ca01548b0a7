package notifications

import (
	"context"
	"errors"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tourdesk/internal/bookings/events"
	"tourdesk/pkg/kafka"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
)

type mockSender struct {
	sent []*Email
	err  error
}

func (m *mockSender) Send(_ context.Context, email *Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func newTestNotifier(t *testing.T, sender Sender) (*Notifier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	dedupe := NewRedisDeduper(rdb, 24*time.Hour)
	return NewNotifier(sender, dedupe, "operator@example.com", logger.Discard()), mr
}

func confirmedEvent() model.BookingEvent {
	return model.BookingEvent{
		EventType:        model.EventBookingConfirmed,
		BookingID:        "42",
		BookingReference: "TRABC123",
		Customer:         model.Customer{Name: "Jane Doe", Email: "jane@example.com", Phone: "+254712345678"},
		TourReference:    "masai-mara-3d",
		NumberOfPeople:   2,
		PreferredDate:    "2025-08-01",
		QuotedTotal:      250,
		Confirmation: &model.Confirmation{
			ConfirmedDate: "2025-08-01",
			ConfirmedTime: "07:30",
			MeetingPoint:  "Hotel lobby",
			FinalPrice:    240,
		},
		Sequence: 1,
	}
}

func buildMessage(t *testing.T, event model.BookingEvent, eventID string) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID(eventID).
		WithEventType(event.EventType).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return msg
}

func TestHandle_SendsOncePerEvent(t *testing.T) {
	sender := &mockSender{}
	n, mr := newTestNotifier(t, sender)
	msg := buildMessage(t, confirmedEvent(), "booking.confirmed:42:1")

	for i := 0; i < 3; i++ {
		if err := n.Handle(context.Background(), msg); err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	email := sender.sent[0]
	if email.To != "jane@example.com" {
		t.Errorf("To = %q", email.To)
	}
	if email.Subject != "Booking Confirmation - TRABC123" {
		t.Errorf("Subject = %q", email.Subject)
	}
	for _, want := range []string{"2025-08-01 at 07:30", "Hotel lobby", "240.00"} {
		if !strings.Contains(email.Body, want) {
			t.Errorf("body missing %q:\n%s", want, email.Body)
		}
	}
	if !mr.Exists(dedupeKeyPrefix + "booking.confirmed:42:1") {
		t.Error("dedupe key not stored")
	}
	if ttl := mr.TTL(dedupeKeyPrefix + "booking.confirmed:42:1"); ttl != 24*time.Hour {
		t.Errorf("dedupe TTL = %s, want 24h", ttl)
	}
}

func TestHandle_RequestGoesToOperator(t *testing.T) {
	sender := &mockSender{}
	n, _ := newTestNotifier(t, sender)

	event := confirmedEvent()
	event.EventType = model.EventBookingRequested
	event.Confirmation = nil

	if err := n.Handle(context.Background(), buildMessage(t, event, "booking.requested:42")); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "operator@example.com" {
		t.Fatalf("sent = %+v", sender.sent)
	}
	if !strings.Contains(sender.sent[0].Body, "Jane Doe <jane@example.com>") {
		t.Errorf("body = %s", sender.sent[0].Body)
	}
}

func TestHandle_MissingEventIDFallsBack(t *testing.T) {
	sender := &mockSender{}
	n, mr := newTestNotifier(t, sender)

	msg := buildMessage(t, confirmedEvent(), "")
	delete(msg.Headers, kafka.HeaderEventID)

	if err := n.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if !mr.Exists(dedupeKeyPrefix + "booking.confirmed:42:1") {
		t.Error("expected dedupe on the derived event id")
	}
}

type capturingProducer struct {
	messages []kafka.Message
}

func (p *capturingProducer) Publish(_ context.Context, msg kafka.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func TestHandle_ReconfirmationSendsAgain(t *testing.T) {
	sender := &mockSender{}
	n, _ := newTestNotifier(t, sender)
	producer := &capturingProducer{}
	pub := events.NewKafkaPublisher(producer)

	booking := &model.Booking{
		ID:               "42",
		BookingReference: "TRABC123",
		Status:           model.StatusConfirmed,
		Customer:         model.Customer{Name: "Jane Doe", Email: "jane@example.com"},
		Confirmation:     &model.Confirmation{ConfirmedDate: "2025-08-01", FinalPrice: 240},
		Confirmations:    1,
	}
	if err := pub.Publish(context.Background(), model.EventBookingConfirmed, booking); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	// Reverted to pending, then confirmed again for a new date.
	booking.Confirmation = &model.Confirmation{ConfirmedDate: "2025-08-09", FinalPrice: 240}
	booking.Confirmations = 2
	if err := pub.Publish(context.Background(), model.EventBookingConfirmed, booking); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	for _, msg := range producer.messages {
		if err := n.Handle(context.Background(), msg); err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
	}
	// A redelivery of the second confirmation is still a duplicate.
	if err := n.Handle(context.Background(), producer.messages[1]); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(sender.sent))
	}
	if !strings.Contains(sender.sent[1].Body, "2025-08-09") {
		t.Errorf("second email missing the new date:\n%s", sender.sent[1].Body)
	}
}

func TestHandle_SendFailureReleasesClaim(t *testing.T) {
	sender := &mockSender{err: errors.New("connection refused")}
	n, mr := newTestNotifier(t, sender)
	msg := buildMessage(t, confirmedEvent(), "booking.confirmed:42:1")

	err := n.Handle(context.Background(), msg)
	if kafka.ClassifyError(err) != kafka.ErrorTypeTransient {
		t.Fatalf("Handle() = %v, want transient error", err)
	}
	if mr.Exists(dedupeKeyPrefix + "booking.confirmed:42:1") {
		t.Error("claim should be released after a failed send")
	}

	sender.err = nil
	if err := n.Handle(context.Background(), msg); err != nil {
		t.Fatalf("retry Handle() error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d emails after retry, want 1", len(sender.sent))
	}
}

func TestHandle_RejectedRecipientIsPermanent(t *testing.T) {
	sender := &mockSender{err: &textproto.Error{Code: 550, Msg: "mailbox does not exist"}}
	n, _ := newTestNotifier(t, sender)

	err := n.Handle(context.Background(), buildMessage(t, confirmedEvent(), "booking.confirmed:42:1"))
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Fatalf("Handle() = %v, want permanent error", err)
	}
}

func TestHandle_MalformedPayload(t *testing.T) {
	n, _ := newTestNotifier(t, &mockSender{})
	msg := kafka.Message{Value: []byte("{not json"), Headers: map[string]string{}}

	err := n.Handle(context.Background(), msg)
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Fatalf("Handle() = %v, want permanent error", err)
	}
}

func TestHandle_UnknownEventIgnored(t *testing.T) {
	sender := &mockSender{}
	n, _ := newTestNotifier(t, sender)

	event := confirmedEvent()
	event.EventType = "booking.archived"
	if err := n.Handle(context.Background(), buildMessage(t, event, "booking.archived:42")); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d emails for an unknown event", len(sender.sent))
	}
}
