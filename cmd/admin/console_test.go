package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tourdesk/pkg/admin"
	"tourdesk/pkg/client"
	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "boom"},
		{
			"validation details sorted",
			apperrors.Validation("Invalid confirmation details", map[string]any{
				"ConfirmedTime": "ConfirmedTime must be a time in HH:MM format",
				"ConfirmedDate": "ConfirmedDate is required",
				"server_code":   "VALIDATION_ERROR",
			}),
			"Invalid confirmation details\n  ConfirmedDate: ConfirmedDate is required\n  ConfirmedTime: ConfirmedTime must be a time in HH:MM format",
		},
		{"network", apperrors.Network("GET /api/bookings/pending/ failed", errors.New("connection refused")), "GET /api/bookings/pending/ failed (connection refused)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.err); got != tt.want {
				t.Errorf("describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintBookings(t *testing.T) {
	var buf bytes.Buffer
	printBookings(&buf, []*model.Booking{
		{ID: "1", BookingReference: "TRAAAAAA", Status: model.StatusPending, PreferredDate: "2030-01-02", QuotedTotal: 100, NumberOfPeople: 2},
		{ID: "2", BookingReference: "TRBBBBBB", Status: model.StatusConfirmed, PreferredDate: "2030-01-02", QuotedTotal: 100,
			Confirmation: &model.Confirmation{ConfirmedDate: "2030-01-05", ConfirmedTime: "08:00", FinalPrice: 90}},
	})

	out := buf.String()
	for _, want := range []string{"TRAAAAAA", "2030-01-02", "100.00", "2030-01-05 08:00", "90.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printBookings(&buf, nil)
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("empty list output = %q", buf.String())
	}
}

type boardAPI struct {
	admin.BookingAPI
	err error
}

func (b *boardAPI) List(_ context.Context, status model.Status, _ int, _ int64) (*client.BookingPage, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &client.BookingPage{
		Data:       []*model.Booking{{ID: "1", BookingReference: "RT" + strings.ToUpper(string(status[:4])), Status: status}},
		TotalCount: 1,
	}, nil
}

func TestWatchBoard(t *testing.T) {
	api := &boardAPI{}
	var out bytes.Buffer
	con := &console{bookings: admin.NewManager(api, logger.Discard()), out: &out}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := watchBoard(ctx, con, 10*time.Millisecond); err != nil {
		t.Fatalf("watchBoard() error: %v", err)
	}
	if n := strings.Count(out.String(), "Pending (1)"); n < 2 {
		t.Errorf("board printed %d times, want at least 2:\n%s", n, out.String())
	}
	if !strings.Contains(out.String(), "RTCONF") {
		t.Errorf("confirmed list missing:\n%s", out.String())
	}
}

func TestWatchBoard_StopsWhenSessionExpires(t *testing.T) {
	api := &boardAPI{err: apperrors.AuthExpired("session expired, please log in again", nil)}
	con := &console{bookings: admin.NewManager(api, logger.Discard()), out: &bytes.Buffer{}}

	err := watchBoard(context.Background(), con, time.Hour)
	if !apperrors.HasCode(err, apperrors.CodeAuthExpired) {
		t.Fatalf("watchBoard() = %v, want %s", err, apperrors.CodeAuthExpired)
	}
}
