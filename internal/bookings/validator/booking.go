package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the map carried by an AppError.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	custom := map[string]validator.Func{
		"booking_date":   validateDate,
		"clock_time":     validateClock,
		"booking_status": validateStatus,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateDate(fl validator.FieldLevel) bool {
	return model.ValidDate(fl.Field().String())
}

func validateClock(fl validator.FieldLevel) bool {
	return model.ValidClock(fl.Field().String())
}

func validateStatus(fl validator.FieldLevel) bool {
	return model.Status(fl.Field().String()).Valid()
}

func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	return v.structErrors(req)
}

func (v *BookingValidator) ValidateConfirmation(details *model.ConfirmationDetails) error {
	return v.structErrors(details)
}

func (v *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	if err := v.structErrors(update); err != nil {
		return err
	}
	if update.IsEmpty() {
		return ValidationErrors{
			ValidationError{
				Field:   "update",
				Message: "at least one field must be provided",
			},
		}
	}
	if update.ConfirmedDate != nil && *update.ConfirmedDate == "" {
		return ValidationErrors{
			ValidationError{
				Field:   "confirmed_date",
				Message: "confirmed_date cannot be cleared",
			},
		}
	}
	return nil
}

func (v *BookingValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +254712345678)", err.Field())
		case "booking_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "clock_time":
			message = fmt.Sprintf("%s must be a time in HH:MM format", err.Field())
		case "booking_status":
			message = fmt.Sprintf("%s must be one of: pending confirmed cancelled", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
