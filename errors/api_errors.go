package errors

import (
	"fmt"
	"net/http"
)

// APIError is the JSON error payload returned by the HTTP surface.
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// HTTPStatus maps the error code to its HTTP status.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case InvalidRequest, NeedsInput:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case MalformedCallback:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error codes returned by the API.
const (
	InvalidRequest    = "invalid_request"
	Unauthorized      = "unauthorized"
	NotFound          = "not_found"
	Conflict          = "conflict"
	NeedsInput        = "needs_input"
	MalformedCallback = "malformed_callback"
	ServerError       = "server_error"
)

func NewInvalidRequest(description string) *APIError {
	return &APIError{Code: InvalidRequest, Description: description}
}

func NewUnauthorized(description string) *APIError {
	return &APIError{Code: Unauthorized, Description: description}
}

func NewNotFound(description string) *APIError {
	return &APIError{Code: NotFound, Description: description}
}

func NewConflict(description string) *APIError {
	return &APIError{Code: Conflict, Description: description}
}

// NewNeedsInput signals the username confirmation state: the submitted
// candidate was rejected and the caller must supply another one.
func NewNeedsInput(description string) *APIError {
	return &APIError{Code: NeedsInput, Description: description}
}

func NewMalformedCallback(description string) *APIError {
	return &APIError{Code: MalformedCallback, Description: description}
}

func NewServerError(description string) *APIError {
	return &APIError{Code: ServerError, Description: description}
}
