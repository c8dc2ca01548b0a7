package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"

	// Client-side kinds. AUTH_EXPIRED always ends the session.
	CodeAuthExpired = "AUTH_EXPIRED"
	CodeNetwork     = "NETWORK_ERROR"
	CodeServer      = "SERVER_ERROR"
)

var statusOf = map[string]int{
	CodeNotFound:     http.StatusNotFound,
	CodeValidation:   http.StatusUnprocessableEntity,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeConflict:     http.StatusConflict,
	CodeInternal:     http.StatusInternalServerError,
	CodeBadRequest:   http.StatusBadRequest,
	CodeTimeout:      http.StatusGatewayTimeout,
	CodeUnavailable:  http.StatusServiceUnavailable,
	CodeInvalidInput: http.StatusBadRequest,
	CodeRateLimited:  http.StatusTooManyRequests,
	CodeAuthExpired:  http.StatusUnauthorized,
	CodeNetwork:      http.StatusServiceUnavailable,
}

func kind(code, message string) *AppError {
	return New(code, message, statusOf[code])
}

func NotFound(resource string) *AppError {
	return kind(CodeNotFound, resource+" not found")
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{"resource": resource, "id": id})
}

func Validation(message string, details map[string]any) *AppError {
	return kind(CodeValidation, message).WithDetails(details)
}

func InvalidInput(message string) *AppError { return kind(CodeInvalidInput, message) }

func Unauthorized(message string) *AppError { return kind(CodeUnauthorized, message) }

func Forbidden(message string) *AppError { return kind(CodeForbidden, message) }

func Conflict(message string) *AppError { return kind(CodeConflict, message) }

func Timeout(message string) *AppError { return kind(CodeTimeout, message) }

func RateLimited(message string) *AppError { return kind(CodeRateLimited, message) }

func Unavailable(service string) *AppError {
	return kind(CodeUnavailable, fmt.Sprintf("%s is temporarily unavailable", service))
}

func Internal(message string, err error) *AppError {
	e := kind(CodeInternal, message)
	e.Err = err
	return e
}

func AuthExpired(message string, err error) *AppError {
	e := kind(CodeAuthExpired, message)
	e.Err = err
	return e
}

// Network marks a request that never reached the server.
func Network(message string, err error) *AppError {
	e := kind(CodeNetwork, message)
	e.Err = err
	return e
}

// Server describes a non-2xx response that carried a body.
func Server(httpStatus int, message string) *AppError {
	return New(CodeServer, message, httpStatus)
}
