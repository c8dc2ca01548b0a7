package model

import (
	"errors"
	"testing"
)

func TestBooking_State(t *testing.T) {
	details := &Confirmation{ConfirmedDate: "2025-08-01", FinalPrice: 120}

	tests := []struct {
		name    string
		booking Booking
		want    Status
		wantErr error
	}{
		{name: "pending", booking: Booking{Status: StatusPending}, want: StatusPending},
		{name: "pending keeps old details", booking: Booking{Status: StatusPending, Confirmation: details}, want: StatusPending},
		{name: "confirmed with details", booking: Booking{Status: StatusConfirmed, Confirmation: details}, want: StatusConfirmed},
		{name: "confirmed without details", booking: Booking{Status: StatusConfirmed}, wantErr: ErrConfirmedWithoutDetails},
		{name: "confirmed with empty date", booking: Booking{Status: StatusConfirmed, Confirmation: &Confirmation{}}, wantErr: ErrConfirmedWithoutDetails},
		{name: "cancelled", booking: Booking{Status: StatusCancelled}, want: StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := tt.booking.State()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("State() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("State() unexpected error: %v", err)
			}
			if state.Status() != tt.want {
				t.Errorf("State().Status() = %s, want %s", state.Status(), tt.want)
			}
		})
	}
}

func TestBooking_StateCarriesDetails(t *testing.T) {
	b := Booking{Status: StatusConfirmed, Confirmation: &Confirmation{ConfirmedDate: "2025-08-01", MeetingPoint: "Hotel lobby"}}

	state, err := b.State()
	if err != nil {
		t.Fatalf("State() unexpected error: %v", err)
	}
	confirmed, ok := state.(Confirmed)
	if !ok {
		t.Fatalf("State() = %T, want Confirmed", state)
	}
	if confirmed.Details.MeetingPoint != "Hotel lobby" {
		t.Errorf("Details.MeetingPoint = %s", confirmed.Details.MeetingPoint)
	}
}

func TestUnknownStatus(t *testing.T) {
	b := Booking{Status: "paid"}
	if _, err := b.State(); err == nil {
		t.Error("State() should reject an unknown status")
	}
	if _, err := ParseStatus("paid"); err == nil {
		t.Error("ParseStatus() should reject an unknown status")
	}
}

func TestBookingUpdate_IsEmpty(t *testing.T) {
	if !(&BookingUpdate{}).IsEmpty() {
		t.Error("zero BookingUpdate should be empty")
	}
	notes := "bring water"
	u := BookingUpdate{AdditionalNotes: &notes}
	if u.IsEmpty() {
		t.Error("BookingUpdate with notes should not be empty")
	}
	if !u.TouchesConfirmation() {
		t.Error("AdditionalNotes is a confirmation field")
	}
}

func TestUser_CanManageBookings(t *testing.T) {
	tests := []struct {
		staff, admin, want bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}
	for _, tt := range tests {
		u := User{IsStaff: tt.staff, IsAdmin: tt.admin}
		if got := u.CanManageBookings(); got != tt.want {
			t.Errorf("CanManageBookings(staff=%v, admin=%v) = %v, want %v", tt.staff, tt.admin, got, tt.want)
		}
	}
}
