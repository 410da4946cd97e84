// Package apperrors defines the error taxonomy shared by services and
// handlers: validation, authentication, authorization, not-found and
// upstream failures, each carrying a user-presentable message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError signals bad or missing input, unavailable stock, or an
// invalid state for a requested transition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthenticationError signals a failed credential or signature check.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AuthorizationError signals an authenticated caller acting outside their
// permissions.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// NotFoundError signals an absent order, product, user or cart.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// UpstreamError signals a failed or timed-out call to a third-party
// service such as the payment gateway.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Validation creates a ValidationError with a formatted message.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Authentication creates an AuthenticationError with a formatted message.
func Authentication(format string, args ...interface{}) error {
	return &AuthenticationError{Message: fmt.Sprintf(format, args...)}
}

// Authorization creates an AuthorizationError with a formatted message.
func Authorization(format string, args ...interface{}) error {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a NotFoundError with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a third-party failure with a presentable message.
func Upstream(err error, format string, args ...interface{}) error {
	return &UpstreamError{Message: fmt.Sprintf(format, args...), Err: err}
}

// StatusCode maps an error to its HTTP status. Unrecognized errors map to
// 500 so internals are never leaked to the client.
func StatusCode(err error) int {
	var (
		validation     *ValidationError
		authentication *AuthenticationError
		authorization  *AuthorizationError
		notFound       *NotFoundError
		upstream       *UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &authentication):
		return http.StatusUnauthorized
	case errors.As(err, &authorization):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
