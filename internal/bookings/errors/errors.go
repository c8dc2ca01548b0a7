package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrDuplicateReference = errors.New("booking reference already exists")

	// ErrStatusChanged is returned when a conditional write lost a race with
	// another status change.
	ErrStatusChanged = errors.New("booking status changed concurrently")
)
