package errors

import (
	"encoding/json"
	"net/http"
)

// DetailServerCode is the Details key holding the code the server sent.
const DetailServerCode = "server_code"

type responseBody struct {
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

// FromResponse classifies a non-2xx response body written by pkg/http:
// 400 and 422 become validation errors, 404 not found, anything else a
// server error carrying the server's message.
func FromResponse(status int, body []byte) *AppError {
	var parsed responseBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == "" {
		parsed.Error = http.StatusText(status)
	}

	appErr := Server(status, parsed.Error)
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		appErr.Code = CodeValidation
	case http.StatusNotFound:
		appErr.Code = CodeNotFound
	}
	if len(parsed.Details) > 0 {
		appErr.Details = parsed.Details
	}
	if parsed.Code != "" {
		appErr.WithDetail(DetailServerCode, parsed.Code)
	}
	return appErr
}
