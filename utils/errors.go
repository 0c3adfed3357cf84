package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine readable error codes carried in the response envelope.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeAuthentication     = "AUTHENTICATION_ERROR"
	CodeAuthorization      = "AUTHORIZATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError is a domain failure that knows its HTTP status.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches any AppError with the same code, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// NewAppError creates an application error.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return NewAppError(http.StatusBadRequest, CodeValidation, fmt.Sprintf(format, args...))
}

func NewAuthenticationError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeAuthentication, message)
}

func NewAuthorizationError(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeAuthorization, message)
}

func NewNotFoundError(entity string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, entity+" not found")
}

func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message)
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = &AppError{Status: http.StatusBadRequest, Code: CodeValidation, Message: "invalid input"}
	ErrUnauthenticated    = &AppError{Status: http.StatusUnauthorized, Code: CodeAuthentication, Message: "authentication required"}
	ErrForbidden          = &AppError{Status: http.StatusForbidden, Code: CodeAuthorization, Message: "forbidden"}
	ErrNotFound           = &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "not found"}
	ErrConflict           = &AppError{Status: http.StatusConflict, Code: CodeConflict, Message: "conflict"}
	ErrServiceUnavailable = &AppError{Status: http.StatusServiceUnavailable, Code: CodeServiceUnavailable, Message: "service temporarily unavailable"}
)

// AsAppError unwraps err into an AppError when one is present in the chain.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
