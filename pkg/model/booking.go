package model

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}

type Customer struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=200"`
	Email string `json:"email" bson:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" bson:"phone" validate:"required,e164"`
}

// Confirmation is kept on the booking once it has been confirmed, even if
// the status later moves back to pending.
type Confirmation struct {
	ConfirmedDate   string    `json:"confirmed_date" bson:"confirmed_date"`
	ConfirmedTime   string    `json:"confirmed_time,omitempty" bson:"confirmed_time,omitempty"`
	MeetingPoint    string    `json:"meeting_point,omitempty" bson:"meeting_point,omitempty"`
	AdditionalNotes string    `json:"additional_notes,omitempty" bson:"additional_notes,omitempty"`
	FinalPrice      float64   `json:"final_price" bson:"final_price"`
	ConfirmedAt     time.Time `json:"confirmed_at" bson:"confirmed_at"`
}

type Booking struct {
	ID                  string        `json:"id,omitempty" bson:"_id,omitempty"`
	BookingReference    string        `json:"booking_reference" bson:"booking_reference"`
	Status              Status        `json:"status" bson:"status"`
	Customer            Customer      `json:"customer" bson:"customer"`
	TourReference       string        `json:"tour_reference" bson:"tour_reference"`
	NumberOfPeople      int           `json:"number_of_people" bson:"number_of_people"`
	PreferredDate       string        `json:"preferred_date" bson:"preferred_date"`
	QuotedTotal         float64       `json:"quoted_total" bson:"quoted_total"`
	SpecialRequirements string        `json:"special_requirements,omitempty" bson:"special_requirements,omitempty"`
	Confirmation        *Confirmation `json:"confirmation,omitempty" bson:"confirmation,omitempty"`
	// Confirmations counts pending -> confirmed transitions. Each one has its
	// own notification, identified by this count.
	Confirmations       int           `json:"-" bson:"confirmations,omitempty"`
	// NotificationPending is set with a confirmation and cleared once its
	// event has been queued.
	NotificationPending bool          `json:"-" bson:"notification_pending,omitempty"`
	CreatedAt           time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the public submission body.
type BookingRequest struct {
	Customer            Customer `json:"customer" validate:"required"`
	TourReference       string   `json:"tour_reference" validate:"required,min=1,max=100"`
	NumberOfPeople      int      `json:"number_of_people" validate:"required,min=1,max=200"`
	PreferredDate       string   `json:"preferred_date" validate:"required,booking_date"`
	QuotedTotal         float64  `json:"quoted_total" validate:"gte=0"`
	SpecialRequirements string   `json:"special_requirements,omitempty" validate:"omitempty,max=2000"`
}

// ConfirmationDetails is what staff supply when confirming a booking.
// A nil FinalPrice means "use the quoted total".
type ConfirmationDetails struct {
	ConfirmedDate   string   `json:"confirmed_date" validate:"required,booking_date"`
	ConfirmedTime   string   `json:"confirmed_time,omitempty" validate:"omitempty,clock_time"`
	MeetingPoint    string   `json:"meeting_point,omitempty" validate:"omitempty,max=255"`
	AdditionalNotes string   `json:"additional_notes,omitempty" validate:"omitempty,max=2000"`
	FinalPrice      *float64 `json:"final_price,omitempty" validate:"omitempty,gte=0"`
}

// BookingUpdate is a partial update. Nil fields are left untouched.
type BookingUpdate struct {
	Status              *Status  `json:"status,omitempty" validate:"omitempty,booking_status"`
	PreferredDate       *string  `json:"preferred_date,omitempty" validate:"omitempty,booking_date"`
	NumberOfPeople      *int     `json:"number_of_people,omitempty" validate:"omitempty,min=1,max=200"`
	SpecialRequirements *string  `json:"special_requirements,omitempty" validate:"omitempty,max=2000"`
	ConfirmedDate       *string  `json:"confirmed_date,omitempty" validate:"omitempty,booking_date"`
	ConfirmedTime       *string  `json:"confirmed_time,omitempty" validate:"omitempty,clock_time"`
	MeetingPoint        *string  `json:"meeting_point,omitempty" validate:"omitempty,max=255"`
	AdditionalNotes     *string  `json:"additional_notes,omitempty" validate:"omitempty,max=2000"`
	FinalPrice          *float64 `json:"final_price,omitempty" validate:"omitempty,gte=0"`
}

func (u *BookingUpdate) IsEmpty() bool {
	return u.Status == nil && u.PreferredDate == nil && u.NumberOfPeople == nil &&
		u.SpecialRequirements == nil && !u.TouchesConfirmation()
}

// TouchesConfirmation reports whether the patch edits any confirmation field.
func (u *BookingUpdate) TouchesConfirmation() bool {
	return u.ConfirmedDate != nil || u.ConfirmedTime != nil || u.MeetingPoint != nil ||
		u.AdditionalNotes != nil || u.FinalPrice != nil
}

type BookingStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Cancelled int64 `json:"cancelled"`
	ThisMonth int64 `json:"this_month"`
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidClock reports whether s is a 24h HH:MM time.
func ValidClock(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil && len(s) == len(TimeLayout)
}
