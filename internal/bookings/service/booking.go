package service

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"sync"
	"time"

	bookingserrors "tourdesk/internal/bookings/errors"
	"tourdesk/internal/bookings/events"
	"tourdesk/internal/bookings/repository"
	"tourdesk/internal/bookings/validator"
	"tourdesk/pkg/config"
	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/metrics"
	"tourdesk/pkg/model"
	"tourdesk/pkg/sanitizer"
)

const (
	referenceAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength     = 6
	maxReferenceRetries = 5
	maxConfirmAttempts  = 2
)

var errConfirmRaced = errors.New("booking confirmed concurrently")

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Check(ctx context.Context, reference, email string) (*model.Booking, error)
	ListByStatus(ctx context.Context, status model.Status, limit int, offset int64) ([]*model.Booking, int64, error)
	Confirm(ctx context.Context, id string, details *model.ConfirmationDetails) (*model.Booking, error)
	Update(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*model.BookingStats, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
	now       func() time.Time
	reference func() (string, error)
}

func NewBookingService(
	repo repository.BookingRepository,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	s := &bookingService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.reference = func() (string, error) { return newReference(cfg.BookingReferencePrefix) }
	return s
}

func newReference(prefix string) (string, error) {
	buf := make([]byte, referenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return prefix + string(buf), nil
}

func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	sanitizer.SanitizeBookingRequest(req)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, validationError("Invalid booking request", err)
	}

	booking := &model.Booking{
		Status:              model.StatusPending,
		Customer:            req.Customer,
		TourReference:       req.TourReference,
		NumberOfPeople:      req.NumberOfPeople,
		PreferredDate:       req.PreferredDate,
		QuotedTotal:         req.QuotedTotal,
		SpecialRequirements: req.SpecialRequirements,
	}

	var err error
	for attempt := 1; attempt <= maxReferenceRetries; attempt++ {
		booking.BookingReference, err = s.reference()
		if err != nil {
			return nil, apperrors.Internal("Failed to generate booking reference", err)
		}
		err = s.repo.Create(ctx, booking)
		if !errors.Is(err, bookingserrors.ErrDuplicateReference) {
			break
		}
		s.cfg.Log.Warn("Booking reference collision", "reference", booking.BookingReference, "attempt", attempt)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	metrics.BookingsCreated.Inc()
	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"reference", booking.BookingReference,
		"tour_reference", booking.TourReference,
	)

	// The operator notice is best effort; the submission already succeeded.
	if err := s.publisher.Publish(ctx, model.EventBookingRequested, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking requested event", "id", booking.ID, "error", err)
	}

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) Check(ctx context.Context, reference, email string) (*model.Booking, error) {
	reference = sanitizer.NormalizeReference(reference)
	email = sanitizer.NormalizeEmail(email)
	if reference == "" || email == "" {
		return nil, apperrors.InvalidInput("Both reference and email are required")
	}

	booking, err := s.repo.FindByReference(ctx, reference, email)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) ListByStatus(ctx context.Context, status model.Status, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !status.Valid() {
		return nil, 0, apperrors.InvalidInput("Unknown booking status: " + string(status))
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByStatus(ctx, status)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "status", status, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByStatus(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "status", status, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// Confirm moves a pending booking to confirmed. Each such transition
// publishes one booking.confirmed event once the transaction has committed.
// Confirming an already confirmed booking only rewrites its details, and
// retries a notification that could not be queued before.
func (s *bookingService) Confirm(ctx context.Context, id string, details *model.ConfirmationDetails) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	sanitizer.SanitizeConfirmation(details)
	if err := s.validator.ValidateConfirmation(details); err != nil {
		s.cfg.Log.Warn("Confirmation validation failed", "id", id, "error", err)
		return nil, validationError("Invalid confirmation details", err)
	}

	var (
		booking      *model.Booking
		transitioned bool
		err          error
	)
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			var txErr error
			booking, transitioned, txErr = s.confirmOnce(txCtx, id, details)
			return txErr
		})
		if !errors.Is(err, errConfirmRaced) {
			break
		}
		s.cfg.Log.Info("Booking confirmed concurrently, retrying as detail update", "id", id)
	}
	if err != nil {
		if errors.Is(err, errConfirmRaced) {
			return nil, apperrors.Conflict("Booking status changed, please retry")
		}
		s.cfg.Log.Error("Failed to confirm booking", "id", id, "error", err)
		return nil, translate(err, id, "Failed to confirm booking")
	}

	if transitioned {
		metrics.BookingTransitions.WithLabelValues(string(model.StatusPending), string(model.StatusConfirmed)).Inc()
	}
	if booking.NotificationPending {
		if err := s.publishConfirmed(ctx, booking); err != nil {
			return nil, err
		}
	}

	s.cfg.Log.Info("Booking confirmed successfully",
		"id", id,
		"confirmed_date", booking.Confirmation.ConfirmedDate,
		"transitioned", transitioned,
		"confirmations", booking.Confirmations,
	)
	return booking, nil
}

func (s *bookingService) confirmOnce(ctx context.Context, id string, details *model.ConfirmationDetails) (*model.Booking, bool, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	state, err := booking.State()
	if err != nil && booking.Status != model.StatusConfirmed {
		return nil, false, apperrors.Internal("Booking is in an unknown state", err)
	}

	switch state.(type) {
	case model.Cancelled:
		return nil, false, apperrors.Conflict("A cancelled booking cannot be confirmed")
	case model.Pending:
		confirmation := s.buildConfirmation(details, booking.Confirmation, booking.QuotedTotal)
		if err := s.repo.ConfirmPending(ctx, id, confirmation); err != nil {
			if errors.Is(err, bookingserrors.ErrStatusChanged) {
				return nil, false, errConfirmRaced
			}
			return nil, false, err
		}
		booking.Status = model.StatusConfirmed
		booking.Confirmation = confirmation
		booking.Confirmations++
		booking.NotificationPending = true
		return booking, true, nil
	}

	// Already confirmed, or marked confirmed without details: rewrite them.
	booking.Confirmation = s.buildConfirmation(details, booking.Confirmation, booking.QuotedTotal)
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, false, err
	}
	return booking, false, nil
}

// publishConfirmed queues the notification of the booking's latest
// confirmation and clears its pending flag.
func (s *bookingService) publishConfirmed(ctx context.Context, booking *model.Booking) error {
	if err := s.publisher.Publish(ctx, model.EventBookingConfirmed, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking confirmed event",
			"id", booking.ID,
			"confirmations", booking.Confirmations,
			"error", err,
		)
		return apperrors.Wrap(err, apperrors.CodeUnavailable,
			"Booking confirmed, but the customer notification could not be queued; confirm again to retry",
			http.StatusServiceUnavailable)
	}

	booking.NotificationPending = false
	if err := s.repo.MarkNotified(ctx, booking.ID, booking.Confirmations); err != nil {
		s.cfg.Log.Warn("Failed to clear pending notification", "id", booking.ID, "error", err)
	}
	return nil
}

func (s *bookingService) buildConfirmation(details *model.ConfirmationDetails, previous *model.Confirmation, quoted float64) *model.Confirmation {
	confirmation := &model.Confirmation{
		ConfirmedDate:   details.ConfirmedDate,
		ConfirmedTime:   details.ConfirmedTime,
		MeetingPoint:    details.MeetingPoint,
		AdditionalNotes: details.AdditionalNotes,
		FinalPrice:      quoted,
		ConfirmedAt:     s.now(),
	}
	if details.FinalPrice != nil {
		confirmation.FinalPrice = *details.FinalPrice
	} else if previous != nil {
		confirmation.FinalPrice = previous.FinalPrice
	}
	if previous != nil && !previous.ConfirmedAt.IsZero() {
		confirmation.ConfirmedAt = previous.ConfirmedAt
	}
	return confirmation
}

// Update applies a partial patch. It never notifies, whatever the status
// change, and concurrent updates are last write wins.
func (s *bookingService) Update(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	sanitizer.SanitizeBookingUpdate(update)
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, validationError("Invalid update input", err)
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, id, "Failed to retrieve booking")
	}

	if booking.Status == model.StatusCancelled && update.Status == nil {
		return nil, apperrors.Conflict("A cancelled booking cannot be edited until its status is changed")
	}

	previous := booking.Status
	if err := s.applyUpdate(booking, update); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, translate(err, id, "Failed to update booking")
	}

	if previous != booking.Status {
		metrics.BookingTransitions.WithLabelValues(string(previous), string(booking.Status)).Inc()
	}
	s.cfg.Log.Info("Booking updated successfully", "id", id, "from", previous, "to", booking.Status)
	return booking, nil
}

func (s *bookingService) applyUpdate(booking *model.Booking, update *model.BookingUpdate) error {
	if update.Status != nil {
		booking.Status = *update.Status
	}
	if update.PreferredDate != nil {
		booking.PreferredDate = *update.PreferredDate
	}
	if update.NumberOfPeople != nil {
		booking.NumberOfPeople = *update.NumberOfPeople
	}
	if update.SpecialRequirements != nil {
		booking.SpecialRequirements = *update.SpecialRequirements
	}

	if update.TouchesConfirmation() {
		confirmation := booking.Confirmation
		if confirmation == nil {
			if update.ConfirmedDate == nil {
				return apperrors.Validation("Invalid update input", map[string]any{
					"confirmed_date": "required when adding confirmation details",
				})
			}
			confirmation = &model.Confirmation{FinalPrice: booking.QuotedTotal, ConfirmedAt: s.now()}
		} else {
			copied := *confirmation
			confirmation = &copied
		}
		if update.ConfirmedDate != nil {
			confirmation.ConfirmedDate = *update.ConfirmedDate
		}
		if update.ConfirmedTime != nil {
			confirmation.ConfirmedTime = *update.ConfirmedTime
		}
		if update.MeetingPoint != nil {
			confirmation.MeetingPoint = *update.MeetingPoint
		}
		if update.AdditionalNotes != nil {
			confirmation.AdditionalNotes = *update.AdditionalNotes
		}
		if update.FinalPrice != nil {
			confirmation.FinalPrice = *update.FinalPrice
		}
		booking.Confirmation = confirmation
	}

	if _, err := booking.State(); err != nil {
		return apperrors.Validation("Invalid update input", map[string]any{
			"confirmed_date": "a confirmed booking needs confirmation details; use confirm",
		})
	}
	return nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return translate(err, id, "Failed to delete booking")
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id)
	return nil
}

func (s *bookingService) Stats(ctx context.Context) (*model.BookingStats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats, err := s.repo.Stats(ctx, monthStart)
	if err != nil {
		s.cfg.Log.Error("Failed to compute booking stats", "error", err)
		return nil, apperrors.Internal("Failed to compute booking stats", err)
	}
	return stats, nil
}

func translate(err error, id, message string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case apperrors.IsAppError(err):
		return err
	}
	return apperrors.Internal(message, err)
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
