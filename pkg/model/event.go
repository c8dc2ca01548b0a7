package model

import "time"

const (
	EventBookingRequested = "booking.requested"
	EventBookingConfirmed = "booking.confirmed"
)

// BookingEvent is the payload published on the booking events topic.
type BookingEvent struct {
	EventType        string        `json:"event_type"`
	BookingID        string        `json:"booking_id"`
	BookingReference string        `json:"booking_reference"`
	Customer         Customer      `json:"customer"`
	TourReference    string        `json:"tour_reference"`
	NumberOfPeople   int           `json:"number_of_people"`
	PreferredDate    string        `json:"preferred_date"`
	QuotedTotal      float64       `json:"quoted_total"`
	Confirmation     *Confirmation `json:"confirmation,omitempty"`
	Sequence         int           `json:"sequence,omitempty"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		EventType:        eventType,
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		Customer:         b.Customer,
		TourReference:    b.TourReference,
		NumberOfPeople:   b.NumberOfPeople,
		PreferredDate:    b.PreferredDate,
		QuotedTotal:      b.QuotedTotal,
		Confirmation:     b.Confirmation,
		Sequence:         b.Confirmations,
		OccurredAt:       at,
	}
}
