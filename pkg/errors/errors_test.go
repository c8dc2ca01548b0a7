package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   NotFound("Booking"),
			expected: "NOT_FOUND: Booking not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("failed to save booking", errors.New("connection reset")),
			expected: "INTERNAL_ERROR: failed to save booking (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NotFound("Booking"), CodeNotFound, http.StatusNotFound},
		{Validation("invalid confirmation", nil), CodeValidation, http.StatusUnprocessableEntity},
		{InvalidInput("malformed id"), CodeInvalidInput, http.StatusBadRequest},
		{Unauthorized("token missing"), CodeUnauthorized, http.StatusUnauthorized},
		{Forbidden("staff only"), CodeForbidden, http.StatusForbidden},
		{Conflict("booking was cancelled"), CodeConflict, http.StatusConflict},
		{Timeout("request timed out"), CodeTimeout, http.StatusGatewayTimeout},
		{RateLimited("too many attempts"), CodeRateLimited, http.StatusTooManyRequests},
		{Unavailable("Mongo"), CodeUnavailable, http.StatusServiceUnavailable},
		{Internal("boom", cause), CodeInternal, http.StatusInternalServerError},
		{AuthExpired("session expired", nil), CodeAuthExpired, http.StatusUnauthorized},
		{Network("GET /api/bookings/ failed", cause), CodeNetwork, http.StatusServiceUnavailable},
		{Server(http.StatusBadGateway, "Bad Gateway"), CodeServer, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.status)
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "42")

	if err.Details["id"] != "42" || err.Details["resource"] != "Booking" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestWithDetail(t *testing.T) {
	err := Conflict("already confirmed").WithDetail("status", "confirmed")

	if err.Details["status"] != "confirmed" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("ticket expired")
	err := Wrap(cause, CodeInvalidInput, "removal was not confirmed", http.StatusBadRequest)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	if AsAppError(fmt.Errorf("loading: %w", appErr)) != appErr {
		t.Error("AsAppError() should return the AppError in the chain")
	}

	plain := errors.New("plain")
	got := AsAppError(plain)
	if got.Code != CodeInternal || got.Err != plain {
		t.Errorf("AsAppError(plain) = %+v", got)
	}
	if IsAppError(plain) {
		t.Error("IsAppError(plain) = true")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("refresh: %w", AuthExpired("session expired", nil))

	if !HasCode(err, CodeAuthExpired) {
		t.Error("HasCode should see through wrapping")
	}
	if HasCode(err, CodeNetwork) {
		t.Error("HasCode matched the wrong code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Error("HasCode matched a plain error")
	}
}

func TestClientFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized answer", Server(http.StatusUnauthorized, "Token is invalid or expired"), true},
		{"validation answer", FromResponse(http.StatusBadRequest, nil), true},
		{"server failure", Server(http.StatusInternalServerError, "Internal Server Error"), false},
		{"unreachable", Network("POST /api/auth/refresh/ failed", errors.New("refused")), false},
		{"plain error", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientFault(tt.err); got != tt.want {
				t.Errorf("ClientFault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		code       string
		message    string
		serverCode any
	}{
		{
			name:       "validation with details",
			status:     http.StatusBadRequest,
			body:       `{"code":"VALIDATION_ERROR","error":"Invalid confirmation","details":{"confirmed_date":"required"}}`,
			code:       CodeValidation,
			message:    "Invalid confirmation",
			serverCode: "VALIDATION_ERROR",
		},
		{
			name:       "unprocessable",
			status:     http.StatusUnprocessableEntity,
			body:       `{"error":"bad"}`,
			code:       CodeValidation,
			message:    "bad",
			serverCode: nil,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `{"code":"NOT_FOUND","error":"Booking not found"}`,
			code:       CodeNotFound,
			message:    "Booking not found",
			serverCode: "NOT_FOUND",
		},
		{
			name:       "conflict",
			status:     http.StatusConflict,
			body:       `{"code":"CONFLICT","error":"Booking was cancelled"}`,
			code:       CodeServer,
			message:    "Booking was cancelled",
			serverCode: "CONFLICT",
		},
		{
			name:       "body is not json",
			status:     http.StatusBadGateway,
			body:       `<html>upstream down</html>`,
			code:       CodeServer,
			message:    "Bad Gateway",
			serverCode: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromResponse(tt.status, []byte(tt.body))

			if err.Code != tt.code {
				t.Errorf("Code = %s, want %s", err.Code, tt.code)
			}
			if err.Message != tt.message {
				t.Errorf("Message = %q, want %q", err.Message, tt.message)
			}
			if err.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, tt.status)
			}
			if got := err.Details[DetailServerCode]; got != tt.serverCode {
				t.Errorf("server code = %v, want %v", got, tt.serverCode)
			}
		})
	}
}
