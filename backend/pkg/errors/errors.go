package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError for HTTP mapping and logging. Command
// rejections from the rules engine are NOT AppErrors -- they come back as
// ordinary CommandRejected events; AppError is reserved for the second
// tier of failures (corrupt snapshot, bad dice formula, storage trouble).
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "VALIDATION_ERROR"
	ErrorTypeAuthorization      ErrorType = "AUTHORIZATION_ERROR"
	ErrorTypeAuthentication     ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeNotFound           ErrorType = "NOT_FOUND"
	ErrorTypeConflict           ErrorType = "CONFLICT"
	ErrorTypeInternal           ErrorType = "INTERNAL_ERROR"
	ErrorTypeRateLimit          ErrorType = "RATE_LIMIT_EXCEEDED"
	ErrorTypeBadRequest         ErrorType = "BAD_REQUEST"
	ErrorTypeServiceUnavailable ErrorType = "SERVICE_UNAVAILABLE"
)

// AppError is the service's typed error, carrying what the HTTP layer
// needs to build a response without inspecting error strings.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Internal   error                  `json:"-"` // never exposed to the client
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithInternal attaches the underlying cause without exposing it.
func (e *AppError) WithInternal(err error) *AppError {
	e.Internal = err
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ToJSON converts the error to its client-facing JSON form.
func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// Common error constructors.

func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, StatusCode: http.StatusBadRequest}
}

func NewAuthenticationError(message string) *AppError {
	return &AppError{Type: ErrorTypeAuthentication, Message: message, StatusCode: http.StatusUnauthorized}
}

func NewAuthorizationError(message string) *AppError {
	return &AppError{Type: ErrorTypeAuthorization, Message: message, StatusCode: http.StatusForbidden}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: fmt.Sprintf("%s not found", resource), StatusCode: http.StatusNotFound}
}

func NewConflictError(message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, StatusCode: http.StatusConflict}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, StatusCode: http.StatusInternalServerError, Internal: err}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{Type: ErrorTypeRateLimit, Message: message, StatusCode: http.StatusTooManyRequests}
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Type: ErrorTypeBadRequest, Message: message, StatusCode: http.StatusBadRequest}
}

func NewServiceUnavailableError(message string) *AppError {
	return &AppError{Type: ErrorTypeServiceUnavailable, Message: message, StatusCode: http.StatusServiceUnavailable}
}

// IsAppError checks if err is an AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError converts err to an AppError, wrapping unknown errors as
// internal so no raw error string ever reaches a client.
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError("An unexpected error occurred", err)
}
