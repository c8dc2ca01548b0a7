package errors

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")

	ErrDuplicateUsername = errors.New("username already exists")
)
