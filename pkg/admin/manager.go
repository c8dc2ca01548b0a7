package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tourdesk/internal/bookings/validator"
	"tourdesk/pkg/client"
	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
)

const (
	DefaultTicketTTL = 2 * time.Minute
	DefaultPageSize  = 100

	confirmTimeout = 30 * time.Second
)

// BookingAPI is the staff side of the bookings REST API.
// client.BookingClient implements it.
type BookingAPI interface {
	List(ctx context.Context, status model.Status, limit int, offset int64) (*client.BookingPage, error)
	Get(ctx context.Context, id string) (*model.Booking, error)
	Confirm(ctx context.Context, id string, details *model.ConfirmationDetails) (*model.Booking, error)
	Update(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.BookingStats, error)
}

// Board is the admin view: pending and confirmed bookings side by side.
type Board struct {
	Pending        []*model.Booking
	Confirmed      []*model.Booking
	PendingTotal   int64
	ConfirmedTotal int64
}

// RemovalTicket authorizes one hard delete of one booking until ExpiresAt.
type RemovalTicket struct {
	ID        string
	BookingID string
	Reference string
	ExpiresAt time.Time
}

// Matches reports whether typed is the booking reference the ticket was
// issued for, ignoring case and surrounding spaces.
func (t RemovalTicket) Matches(typed string) bool {
	return strings.EqualFold(strings.TrimSpace(typed), t.Reference)
}

// Manager drives booking state transitions from the admin side. It never
// retries; callers reload the board after every mutation.
type Manager struct {
	api       BookingAPI
	validator *validator.BookingValidator
	log       *logger.Logger
	now       func() time.Time
	ticketTTL time.Duration
	pageSize  int

	confirms singleflight.Group

	mu      sync.Mutex
	tickets map[string]RemovalTicket
}

func NewManager(api BookingAPI, log *logger.Logger) *Manager {
	return &Manager{
		api:       api,
		validator: validator.NewBookingValidator(log),
		log:       log,
		now:       time.Now,
		ticketTTL: DefaultTicketTTL,
		pageSize:  DefaultPageSize,
		tickets:   make(map[string]RemovalTicket),
	}
}

// Load fetches the pending and confirmed lists concurrently.
func (m *Manager) Load(ctx context.Context) (*Board, error) {
	var pending, confirmed *client.BookingPage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pending, err = m.api.List(gctx, model.StatusPending, m.pageSize, 0)
		return err
	})
	g.Go(func() error {
		var err error
		confirmed, err = m.api.List(gctx, model.StatusConfirmed, m.pageSize, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		m.log.Error("failed to load bookings", "error", err)
		return nil, err
	}

	return &Board{
		Pending:        pending.Data,
		Confirmed:      confirmed.Data,
		PendingTotal:   pending.TotalCount,
		ConfirmedTotal: confirmed.TotalCount,
	}, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*model.Booking, error) {
	return m.api.Get(ctx, id)
}

func (m *Manager) Stats(ctx context.Context) (*model.BookingStats, error) {
	return m.api.Stats(ctx)
}

// Confirm moves a booking to confirmed with the given details. Concurrent
// calls for the same id share one request and its result.
func (m *Manager) Confirm(ctx context.Context, id string, details model.ConfirmationDetails) (*model.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("Booking ID is required", map[string]any{"id": "id is required"})
	}
	if err := m.validator.ValidateConfirmation(&details); err != nil {
		return nil, validationError("Invalid confirmation details", err)
	}

	if date, err := time.ParseInLocation(model.DateLayout, details.ConfirmedDate, time.Local); err == nil {
		today := m.now().In(time.Local)
		today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
		if date.Before(today) {
			m.log.Warn("confirming booking for a date in the past", "booking_id", id, "confirmed_date", details.ConfirmedDate)
		}
	}

	// The shared request is detached from ctx: a caller that gives up stops
	// waiting, but the confirmation still completes for everyone else.
	ch := m.confirms.DoChan(id, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), confirmTimeout)
		defer cancel()
		return m.api.Confirm(cctx, id, &details)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		m.log.Warn("stopped waiting for confirmation", "booking_id", id, "error", ctx.Err())
		return nil, apperrors.Network("gave up waiting for the confirmation; reload to see its outcome", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		m.log.Error("failed to confirm booking", "booking_id", id, "error", res.Err)
		return nil, res.Err
	}

	booking := *res.Val.(*model.Booking)
	m.log.Info("booking confirmed", "booking_id", id, "booking_reference", booking.BookingReference, "shared", res.Shared)
	return &booking, nil
}

// Update applies a partial update. It never triggers a notification, even
// when it changes the status.
func (m *Manager) Update(ctx context.Context, id string, update model.BookingUpdate) (*model.Booking, error) {
	if err := m.validator.ValidateUpdate(&update); err != nil {
		return nil, validationError("Invalid booking update", err)
	}

	booking, err := m.api.Update(ctx, id, &update)
	if err != nil {
		m.log.Error("failed to update booking", "booking_id", id, "error", err)
		return nil, err
	}
	m.log.Info("booking updated", "booking_id", id, "status", booking.Status)
	return booking, nil
}

// ChangeStatus reassigns the status. Any of the three statuses is accepted
// from any other.
func (m *Manager) ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Booking, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("Invalid booking status", map[string]any{
			"status": "status must be one of: pending confirmed cancelled",
		})
	}
	return m.Update(ctx, id, model.BookingUpdate{Status: &status})
}

// RequestRemoval issues the ticket that Remove requires.
func (m *Manager) RequestRemoval(id, reference string) RemovalTicket {
	now := m.now()
	ticket := RemovalTicket{
		ID:        uuid.NewString(),
		BookingID: id,
		Reference: reference,
		ExpiresAt: now.Add(m.ticketTTL),
	}

	m.mu.Lock()
	for key, t := range m.tickets {
		if !now.Before(t.ExpiresAt) {
			delete(m.tickets, key)
		}
	}
	m.tickets[ticket.ID] = ticket
	m.mu.Unlock()

	return ticket
}

var (
	errTicketUnknown = errors.New("removal ticket is unknown or already used")
	errTicketExpired = errors.New("removal ticket has expired")
)

// Remove hard-deletes the booking named by ticket. A ticket works once, and
// only before it expires.
func (m *Manager) Remove(ctx context.Context, ticket RemovalTicket) error {
	m.mu.Lock()
	stored, ok := m.tickets[ticket.ID]
	delete(m.tickets, ticket.ID)
	m.mu.Unlock()

	if !ok || stored.BookingID != ticket.BookingID {
		return apperrors.Wrap(errTicketUnknown, apperrors.CodeInvalidInput, errTicketUnknown.Error(), http.StatusBadRequest)
	}
	if !m.now().Before(stored.ExpiresAt) {
		return apperrors.Wrap(errTicketExpired, apperrors.CodeInvalidInput, errTicketExpired.Error(), http.StatusBadRequest)
	}

	if err := m.api.Delete(ctx, stored.BookingID); err != nil {
		m.log.Error("failed to delete booking", "booking_id", stored.BookingID, "error", err)
		return err
	}
	m.log.Info("booking deleted", "booking_id", stored.BookingID, "booking_reference", stored.Reference)
	return nil
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
