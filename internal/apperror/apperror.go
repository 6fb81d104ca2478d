package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error classes the API can surface.
//
// ERROR TAXONOMY:
//   - ErrValidation   → 400 (caller sent bad data)
//   - ErrUnauthorized → 401 (missing/malformed/expired/invalid credential — one
//     class on purpose, so clients cannot distinguish a forged token from an
//     expired one)
//   - ErrForbidden    → 403 (authenticated, but the role doesn't qualify)
//   - ErrNotFound     → 404
//   - ErrConflict     → 409
//   - ErrUpstream     → identity-provider failure; surfaced to clients as a
//     generic authentication failure, the provider detail is only logged
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream provider error")
)

type AppError struct {
	Err     error  // sentinel this error belongs to (for errors.Is)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for any rejected credential.
//
// The message is intentionally generic — every credential failure (missing
// header, malformed token, bad signature, expiry, unknown refresh token)
// produces the same client-visible shape. The actual cause goes to the log,
// never to the response.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "valid authentication required",
	}
}

// Upstream wraps a failure from an external identity provider. The wrapped
// error keeps the provider detail for logging; the Message is what a client
// may see.
func Upstream(provider string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrUpstream, provider, err),
		Message: "authentication failed",
	}
}
