package lectern

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	// Error codes the Lectern API attaches to failure responses.
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidGrant       = "invalid_grant"
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeServerError        = "server_error"
)

// ErrUnauthorized is returned by authenticated operations when the session
// could not produce a usable token, or when the server answered 401. By the
// time a caller sees it the session has already been torn down.
var ErrUnauthorized = errors.New("lectern: unauthorized")

// ============================================================================
// APIError
// ============================================================================

// APIError represents a structured error response from the Lectern API. It is
// returned verbatim to callers of user-initiated operations (login, register,
// course CRUD) so UI layers can display the server's message.
type APIError struct {
	// Status is the HTTP status code of the response
	Status int `json:"-"`

	// Code is the machine-readable error code, when the server sent one
	Code string `json:"code,omitempty"`

	// Message is a human-readable description of the error
	Message string `json:"message"`

	// Fields contains field-specific validation errors (field name: message)
	Fields map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// IsInvalidCredentials reports whether err is the API rejecting a login or
// register attempt.
func IsInvalidCredentials(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeInvalidCredentials || apiErr.Status == http.StatusUnauthorized
}

// parseErrorResponse turns a non-2xx response body into a typed *APIError.
// Returns nil for success status codes.
func parseErrorResponse(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{
			Status:  status,
			Code:    errResp.Code,
			Message: errResp.Message,
			Fields:  errResp.Errors,
		}
	}

	// Fallback: create a generic error from the status code
	return &APIError{
		Status:  status,
		Code:    CodeServerError,
		Message: http.StatusText(status),
	}
}
